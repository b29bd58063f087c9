// Package report parses and renders the campaign markdown exchanged
// between the pipeline and its clients.
//
// One grammar covers the final report, the writer's draft sections and
// the crafted post payloads. Malformed records are never emitted partially:
// they are dropped and the reason is returned to the caller.
package report

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/vinayprograms/growwit/internal/campaign"
)

// ErrIncompleteDraft is returned when a draft lacks a title or a body.
var ErrIncompleteDraft = errors.New("draft is missing a title or body")

// DropReason records a block the parser refused to emit.
type DropReason struct {
	Line      int
	Subreddit string
	Reason    string
}

func (d DropReason) String() string {
	if d.Subreddit != "" {
		return fmt.Sprintf("line %d (%s): %s", d.Line, d.Subreddit, d.Reason)
	}
	return fmt.Sprintf("line %d: %s", d.Line, d.Reason)
}

// Labels that open a field inside a post block.
const (
	labelTitle       = "TITLE"
	labelBody        = "BODY"
	labelSafety      = "SAFETY RATING"
	labelScheduling  = "SCHEDULING"
	labelEngagement  = "ENGAGEMENT STRATEGY"
	labelFlair       = "SUGGESTED FLAIR"
	labelSafetyCheck = "SAFETY CHECK"
	labelOptimal     = "OPTIMAL"
	labelToday       = "TODAY'S WINDOW"
	labelSuccess     = "SUCCESS INDICATOR"
)

// Level-one section headings of the final report.
const (
	headingTargets = "TARGET SUBREDDITS"
	headingFraming = "FRAMING STRATEGIES"
	headingPosts   = "READY-TO-POST CAMPAIGNS"
)

type section int

const (
	sectionNone section = iota
	sectionTargets
	sectionFraming
	sectionPosts
)

// Parser parses report tokens into a campaign.Report.
type Parser struct {
	l         *Lexer
	curToken  Token
	peekToken Token
	drops     []DropReason
}

// NewParser creates a parser for the given lexer.
func NewParser(l *Lexer) *Parser {
	p := &Parser{l: l}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) drop(line int, subreddit, reason string) {
	p.drops = append(p.drops, DropReason{Line: line, Subreddit: subreddit, Reason: reason})
}

// Parse parses the final report. Progress narration before the last
// target heading is ignored; post blocks are accepted wherever they appear.
func Parse(text string) (*campaign.Report, []DropReason) {
	return NewParser(NewLexer(reportSection(text))).Parse()
}

// reportSection returns text from the last target heading onward, or all
// of text when the heading is absent.
func reportSection(text string) string {
	lines := strings.SplitAfter(text, "\n")
	start := -1
	offset := 0
	for _, line := range lines {
		tok := classify(strings.TrimRight(line, "\r\n"))
		if tok.Type == TokenHeading && tok.Level == 1 && strings.Contains(strings.ToUpper(tok.Value), headingTargets) {
			start = offset
		}
		offset += len(line)
	}
	if start < 0 {
		return text
	}
	return text[start:]
}

// Parse consumes every token and returns the report and dropped blocks.
func (p *Parser) Parse() (*campaign.Report, []DropReason) {
	rep := &campaign.Report{}
	framing := make(map[string]string)
	var framingOrder []string
	var strategy strings.Builder
	sec := sectionNone

	for p.curToken.Type != TokenEOF {
		tok := p.curToken
		switch tok.Type {
		case TokenHeading:
			if tok.Level == 1 {
				sec = sectionOf(tok.Value)
			}
			if sec == sectionTargets || sec == sectionFraming {
				strategy.WriteString(tok.Literal + "\n")
			}
			p.nextToken()
		case TokenPostHeader:
			p.parsePost(rep)
		case TokenBullet:
			switch sec {
			case sectionTargets:
				if t, ok := parseTarget(tok); ok {
					rep.Targets = append(rep.Targets, t)
				} else {
					p.drop(tok.Line, "", "target line without a subreddit")
				}
			case sectionFraming:
				sub, angle := splitSubredditLine(rawBullet(tok))
				if sub == "" {
					p.drop(tok.Line, "", "framing line without a subreddit")
				} else {
					key := campaign.SubredditKey(sub)
					if _, seen := framing[key]; !seen {
						framingOrder = append(framingOrder, sub)
					}
					framing[key] = angle
				}
			}
			if sec == sectionTargets || sec == sectionFraming {
				strategy.WriteString(tok.Literal + "\n")
			}
			p.nextToken()
		case TokenStep:
			p.nextToken()
		default:
			if sec == sectionTargets || sec == sectionFraming {
				strategy.WriteString(tok.Literal + "\n")
			}
			p.nextToken()
		}
	}

	mergeFraming(rep, framing, framingOrder)
	rep.StrategyText = strings.TrimSpace(strategy.String())
	rep.ScheduleText = scheduleText(rep.Schedule)
	return rep, p.drops
}

func sectionOf(heading string) section {
	h := strings.ToUpper(heading)
	switch {
	case strings.Contains(h, headingTargets):
		return sectionTargets
	case strings.Contains(h, headingFraming):
		return sectionFraming
	case strings.Contains(h, headingPosts):
		return sectionPosts
	}
	return sectionNone
}

func mergeFraming(rep *campaign.Report, framing map[string]string, order []string) {
	seen := make(map[string]bool)
	for i := range rep.Targets {
		key := campaign.SubredditKey(rep.Targets[i].Subreddit)
		rep.Targets[i].Framing = framing[key]
		seen[key] = true
	}
	for _, sub := range order {
		key := campaign.SubredditKey(sub)
		if !seen[key] {
			rep.Targets = append(rep.Targets, campaign.Target{Subreddit: sub, Framing: framing[key]})
			seen[key] = true
		}
	}
	for _, post := range rep.Posts {
		if !post.SafetyRating.Valid() {
			continue
		}
		rep.Recommendations = append(rep.Recommendations, campaign.Recommendation{
			Subreddit:       post.Subreddit,
			FramingStrategy: framing[campaign.SubredditKey(post.Subreddit)],
			SafetyRating:    post.SafetyRating,
		})
	}
}

func scheduleText(windows []campaign.ScheduleWindow) string {
	var b strings.Builder
	for _, w := range windows {
		fmt.Fprintf(&b, "%s: %s", w.Subreddit, w.Optimal())
		if w.TodayWindow != "" {
			fmt.Fprintf(&b, " (today: %s)", w.TodayWindow)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// parsePost parses one "## 📍 r/<name>" block.
func (p *Parser) parsePost(rep *campaign.Report) {
	start := p.curToken.Line
	sub := campaign.NormalizeSubreddit(p.curToken.Value)
	p.nextToken()

	f := p.parseFields(isPostStop)
	d := f.draft(sub)

	switch {
	case sub == "":
		p.drop(start, "", "post header without a subreddit")
		return
	case strings.TrimSpace(d.Title) == "":
		p.drop(start, sub, "missing title")
		return
	case strings.TrimSpace(d.Body) == "":
		p.drop(start, sub, "missing body")
		return
	}
	if f.ratingText != "" && !d.SafetyRating.Valid() {
		p.drop(start, sub, fmt.Sprintf("unrecognized safety rating %q", f.ratingText))
		return
	}
	rep.Posts = append(rep.Posts, d)

	if f.optimal == "" {
		return
	}
	day, hour, ok := parseOptimal(f.optimal)
	if !ok {
		p.drop(start, sub, fmt.Sprintf("unparsable schedule %q", f.optimal))
		return
	}
	rep.Schedule = append(rep.Schedule, campaign.ScheduleWindow{
		Subreddit:        sub,
		PeakDay:          day,
		PeakHourUTC:      hour,
		TodayWindow:      f.today,
		SuccessIndicator: f.success,
		EngagementAdvice: f.engagement,
	})
}

// fields collects the labelled sections of a post or draft.
type fields struct {
	title, body, flair, safetyCheck string
	rating                          campaign.SafetyRating
	ratingText, ratingReason        string
	optimal, today, success         string
	engagement                      string
}

func (f fields) draft(sub string) campaign.PostDraft {
	check := f.safetyCheck
	if check == "" {
		check = f.ratingReason
	}
	return campaign.PostDraft{
		Subreddit:    sub,
		Title:        f.title,
		Body:         f.body,
		Flair:        f.flair,
		SafetyRating: f.rating,
		SafetyCheck:  check,
	}
}

// parseFields reads labelled sections until stop reports true for the
// current token. The first occurrence of each label wins.
func (p *Parser) parseFields(stop func(Token) bool) fields {
	var f fields
	for p.curToken.Type != TokenEOF && !stop(p.curToken) {
		tok := p.curToken
		if tok.Type != TokenLabel {
			p.nextToken()
			continue
		}
		switch {
		case tok.Label == labelTitle:
			v := p.inlineOrNext(tok.Value)
			if f.title == "" {
				f.title = v
			}
		case tok.Label == labelBody:
			v := p.collect(tok.Value)
			if f.body == "" {
				f.body = v
			}
		case tok.Label == labelSafety:
			f.ratingText = tok.Value
			f.rating, f.ratingReason = parseRatingLine(tok.Value)
			p.nextToken()
		case strings.HasPrefix(tok.Label, labelScheduling):
			p.nextToken()
			p.parseScheduleBullets(&f)
		case tok.Label == labelEngagement:
			f.engagement = p.collect(tok.Value)
		case tok.Label == labelFlair:
			inline := tok.Value
			if strings.HasPrefix(inline, "(") && strings.HasSuffix(inline, ")") {
				inline = "" // "(if applicable)"
			}
			f.flair = p.inlineOrNext(inline)
		case tok.Label == labelSafetyCheck:
			f.safetyCheck = p.collect(tok.Value)
		default:
			p.nextToken()
		}
	}
	if p.curToken.Type == TokenRule {
		p.nextToken()
	}
	return f
}

func (p *Parser) parseScheduleBullets(f *fields) {
	for p.curToken.Type == TokenBullet || p.curToken.Type == TokenBlank {
		tok := p.curToken
		switch tok.Label {
		case labelOptimal:
			f.optimal = tok.Value
		case labelToday:
			f.today = tok.Value
		case labelSuccess:
			f.success = tok.Value
		}
		p.nextToken()
	}
}

// inlineOrNext returns the inline value of a label, or the next
// non-blank text line when the value sits on its own line.
func (p *Parser) inlineOrNext(inline string) string {
	p.nextToken()
	if inline != "" {
		return strings.TrimSpace(inline)
	}
	for p.curToken.Type == TokenBlank {
		p.nextToken()
	}
	if p.curToken.Type == TokenText {
		v := p.curToken.Value
		p.nextToken()
		return v
	}
	return ""
}

// collect gathers free text after a label until the next field boundary.
func (p *Parser) collect(inline string) string {
	var lines []string
	if inline != "" {
		lines = append(lines, inline)
	}
	p.nextToken()
	for !isFieldBoundary(p.curToken) {
		lines = append(lines, strings.TrimRight(p.curToken.Literal, " \t"))
		p.nextToken()
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func isFieldBoundary(tok Token) bool {
	switch tok.Type {
	case TokenEOF, TokenRule, TokenHeading, TokenPostHeader, TokenStep:
		return true
	case TokenLabel:
		return isKnownLabel(tok.Label)
	}
	return false
}

func isKnownLabel(label string) bool {
	switch label {
	case labelTitle, labelBody, labelSafety, labelEngagement, labelFlair, labelSafetyCheck:
		return true
	}
	return strings.HasPrefix(label, labelScheduling)
}

func isPostStop(tok Token) bool {
	switch tok.Type {
	case TokenPostHeader, TokenHeading, TokenRule:
		return true
	}
	return false
}

// ParseDraft parses the writer's sections (title, body, flair, safety
// check) for one community.
func ParseDraft(subreddit, text string) (campaign.PostDraft, error) {
	d := draftFields(subreddit, text)
	if strings.TrimSpace(d.Title) == "" || strings.TrimSpace(d.Body) == "" {
		return campaign.PostDraft{}, ErrIncompleteDraft
	}
	return d, nil
}

// draftFields reads whatever sections are present without checking that
// the draft is complete.
func draftFields(subreddit, text string) campaign.PostDraft {
	p := NewParser(NewLexer(text))
	f := p.parseFields(func(tok Token) bool { return tok.Type == TokenPostHeader })
	return f.draft(campaign.NormalizeSubreddit(subreddit))
}

func parseRatingLine(v string) (campaign.SafetyRating, string) {
	v = strings.TrimSpace(v)
	end := 0
	for end < len(v) && (v[end] == '*' || v[end] == '_') {
		end++
	}
	word := end
	for word < len(v) && ((v[word] >= 'a' && v[word] <= 'z') || (v[word] >= 'A' && v[word] <= 'Z')) {
		word++
	}
	rating, ok := campaign.ParseSafetyRating(v[end:word])
	if !ok {
		return "", ""
	}
	reason := strings.TrimLeft(v[word:], "*_ -–—:")
	return rating, strings.TrimSpace(reason)
}

func parseTarget(tok Token) (campaign.Target, bool) {
	sub, note := splitSubredditLine(rawBullet(tok))
	if sub == "" {
		return campaign.Target{}, false
	}
	note = strings.Trim(note, "()")
	return campaign.Target{Subreddit: sub, Note: strings.TrimSpace(note)}, true
}

// rawBullet returns the bullet text before label splitting.
func rawBullet(tok Token) string {
	text, _ := bulletText(strings.TrimSpace(tok.Literal))
	return text
}

// splitSubredditLine finds the first "r/<name>" in s and returns it with
// whatever follows, stripped of separators.
func splitSubredditLine(s string) (sub, rest string) {
	idx := strings.Index(strings.ToLower(s), "r/")
	if idx < 0 {
		return "", ""
	}
	name := campaign.SubredditName(s[idx:])
	if name == "" {
		return "", ""
	}
	after := s[idx+2+len(name):]
	return "r/" + name, strings.TrimSpace(strings.TrimLeft(after, "*_` :-–—"))
}

var hourPattern = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)

// parseOptimal reads "<day> at <time>".
func parseOptimal(v string) (string, int, bool) {
	day, rest, ok := findWeekday(v)
	if !ok {
		return "", 0, false
	}
	hour, ok := parseHour(rest)
	if !ok {
		return "", 0, false
	}
	return day, hour, true
}

func findWeekday(v string) (day, rest string, ok bool) {
	words := strings.FieldsFunc(v, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
	for _, w := range words {
		if wd, found := campaign.ParseWeekday(w); found {
			idx := strings.Index(v, w)
			return campaign.Weekdays[wd], v[idx+len(w):], true
		}
	}
	return "", "", false
}

// parseHour reads the first clock time in v as an hour in [0,23].
func parseHour(v string) (int, bool) {
	m := hourPattern.FindStringSubmatch(v)
	if m == nil {
		return 0, false
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(m[3]) {
	case "am":
		if hour < 1 || hour > 12 {
			return 0, false
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return 0, false
		}
		if hour != 12 {
			hour += 12
		}
	}
	if hour < 0 || hour > 23 {
		return 0, false
	}
	return hour, true
}
