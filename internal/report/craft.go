package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vinayprograms/growwit/internal/campaign"
)

// Craft stream framing tokens.
const (
	PostStart    = "[POST_START]"
	PostEnd      = "[POST_END]"
	SubredditTag = "[SUBREDDIT]:"
	ErrorTag     = "[ERROR]:"
)

// Defaults applied by DecodeCraftStream when a payload omits a field.
const (
	DefaultCraftSubreddit = "marketing"
	DefaultCraftTitle     = "Campaign Post"
)

// ErrStreamFailed reports a stream that ended with an error marker.
var ErrStreamFailed = errors.New("generation failed")

// CraftedPost is one decoded payload of the crafting stream.
type CraftedPost struct {
	Subreddit string // bare name, no "r/"
	Title     string
	Body      string
	Raw       string
}

// FormatDraft renders a draft in the writer's section layout.
func FormatDraft(d campaign.PostDraft) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Title:** %s\n\n**Body:**\n%s\n", d.Title, d.Body)
	if d.Flair != "" {
		fmt.Fprintf(&b, "\n**Suggested Flair:** %s\n", d.Flair)
	}
	return b.String()
}

// EncodeCraftedPost writes one framed post.
func EncodeCraftedPost(w io.Writer, subreddit, text string) error {
	_, err := fmt.Fprintf(w, "\n%s\n%s r/%s\n%s\n%s\n",
		PostStart, SubredditTag, campaign.SubredditName(subreddit), strings.TrimSpace(text), PostEnd)
	return err
}

// DecodeCraftStream reads framed posts from r and calls fn for each one
// as soon as its end marker arrives. Payloads with neither a title nor a
// body section are skipped. A stream ending in an error marker
// returns ErrStreamFailed with the upstream message.
func DecodeCraftStream(r io.Reader, fn func(CraftedPost) error) error {
	br := bufio.NewReader(r)
	var buf strings.Builder
	for {
		chunk, err := br.ReadString('\n')
		buf.WriteString(chunk)
		if strings.Contains(chunk, PostEnd) {
			pending := buf.String()
			parts := strings.Split(pending, PostEnd)
			for _, part := range parts[:len(parts)-1] {
				if post, ok := decodePayload(part); ok {
					if ferr := fn(post); ferr != nil {
						return ferr
					}
				}
			}
			buf.Reset()
			buf.WriteString(parts[len(parts)-1])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	rest := buf.String()
	if i := strings.Index(rest, ErrorTag); i >= 0 {
		return fmt.Errorf("%w: %s", ErrStreamFailed, strings.TrimSpace(rest[i+len(ErrorTag):]))
	}
	return nil
}

func decodePayload(part string) (CraftedPost, bool) {
	i := strings.Index(part, PostStart)
	if i < 0 {
		return CraftedPost{}, false
	}
	payload := strings.TrimSpace(part[i+len(PostStart):])
	post := CraftedPost{Raw: payload, Subreddit: DefaultCraftSubreddit}

	text := payload
	if j := strings.Index(payload, SubredditTag); j >= 0 {
		line := payload[j+len(SubredditTag):]
		if nl := strings.IndexByte(line, '\n'); nl >= 0 {
			text = line[nl+1:]
			line = line[:nl]
		} else {
			text = ""
		}
		if name := campaign.SubredditName(line); name != "" {
			post.Subreddit = name
		}
	}

	// Only payloads with a title or body section are posts; anything else
	// (a refusal, an empty frame) is skipped.
	d := draftFields(post.Subreddit, text)
	post.Title = strings.TrimSpace(d.Title)
	post.Body = strings.TrimSpace(d.Body)
	if post.Title == "" && post.Body == "" {
		return CraftedPost{}, false
	}
	if post.Title == "" {
		post.Title = DefaultCraftTitle
	}
	if post.Body == "" {
		post.Body = withoutTitleLine(text, d.Title)
		if post.Body == "" {
			return CraftedPost{}, false
		}
	}
	return post, true
}

// withoutTitleLine returns text minus the first line carrying title.
func withoutTitleLine(text, title string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if title != "" && strings.Contains(line, title) {
			lines = append(lines[:i], lines[i+1:]...)
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
