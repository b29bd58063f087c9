package report

import (
	"strconv"
	"strings"
	"unicode"
)

// TokenType classifies one line of agent output.
type TokenType string

const (
	TokenEOF        TokenType = "EOF"
	TokenBlank      TokenType = "BLANK"
	TokenHeading    TokenType = "HEADING"
	TokenPostHeader TokenType = "POST_HEADER"
	TokenLabel      TokenType = "LABEL"
	TokenBullet     TokenType = "BULLET"
	TokenRule       TokenType = "RULE"
	TokenStep       TokenType = "STEP"
	TokenText       TokenType = "TEXT"
)

// Token is a classified line. Label and Value are set for bold labels,
// including labelled bullets such as "- **Optimal:** Tuesday".
type Token struct {
	Type    TokenType
	Literal string // the raw line
	Level   int    // heading level
	Label   string // normalized label, e.g. "SAFETY RATING"
	Value   string // text after the label, or heading/bullet text
	Step    int    // for TokenStep
	Line    int    // 1-indexed
}

// postMarker opens a post block: "## 📍 r/<name>".
const postMarker = "📍"

// Lexer splits agent output into line tokens.
type Lexer struct {
	input        string
	position     int // start of current line
	readPosition int // start of next line
	line         int
}

// NewLexer creates a lexer over input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: strings.ReplaceAll(input, "\r\n", "\n")}
}

// readLine advances to the next line and returns it without its newline.
func (l *Lexer) readLine() (string, bool) {
	if l.readPosition >= len(l.input) {
		return "", false
	}
	l.position = l.readPosition
	end := strings.IndexByte(l.input[l.position:], '\n')
	var line string
	if end < 0 {
		line = l.input[l.position:]
		l.readPosition = len(l.input)
	} else {
		line = l.input[l.position : l.position+end]
		l.readPosition = l.position + end + 1
	}
	l.line++
	return line, true
}

// NextToken returns the token for the next line.
func (l *Lexer) NextToken() Token {
	raw, ok := l.readLine()
	if !ok {
		return Token{Type: TokenEOF, Line: l.line + 1}
	}
	tok := classify(raw)
	tok.Line = l.line
	return tok
}

// Tokens lexes the whole input.
func Tokens(input string) []Token {
	l := NewLexer(input)
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			return toks
		}
	}
}

func classify(raw string) Token {
	tok := Token{Literal: raw}
	line := strings.TrimSpace(raw)

	switch {
	case line == "":
		tok.Type = TokenBlank
		return tok
	case isRule(line):
		tok.Type = TokenRule
		return tok
	}

	if n, ok := stepMarker(line); ok {
		tok.Type = TokenStep
		tok.Step = n
		return tok
	}

	if strings.HasPrefix(line, "#") {
		level := 0
		for level < len(line) && line[level] == '#' {
			level++
		}
		text := strings.TrimSpace(line[level:])
		if level <= 6 && (level == len(line) || line[level] == ' ') {
			tok.Level = level
			tok.Value = text
			if strings.HasPrefix(text, postMarker) {
				tok.Type = TokenPostHeader
				tok.Value = strings.TrimSpace(strings.TrimPrefix(text, postMarker))
				return tok
			}
			tok.Type = TokenHeading
			return tok
		}
	}

	if rest, ok := bulletText(line); ok {
		tok.Type = TokenBullet
		tok.Value = rest
		if label, value, ok := splitLabel(rest); ok {
			tok.Label = label
			tok.Value = value
		}
		return tok
	}

	if label, value, ok := splitLabel(line); ok {
		tok.Type = TokenLabel
		tok.Label = label
		tok.Value = value
		return tok
	}

	tok.Type = TokenText
	tok.Value = line
	return tok
}

func isRule(line string) bool {
	if len(line) < 3 {
		return false
	}
	for _, c := range line {
		if c != '-' && c != '=' && c != '_' {
			return false
		}
	}
	return line[0] == '-' || line[0] == '_'
}

// stepMarker matches a line that holds nothing but "[STEP:n]".
func stepMarker(line string) (int, bool) {
	if !strings.HasPrefix(line, "[STEP:") || !strings.HasSuffix(line, "]") {
		return 0, false
	}
	n, err := strconv.Atoi(line[len("[STEP:") : len(line)-1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func bulletText(line string) (string, bool) {
	if len(line) >= 2 && (line[0] == '-' || line[0] == '*' || line[0] == '+') && line[1] == ' ' {
		return strings.TrimSpace(line[2:]), true
	}
	return "", false
}

// splitLabel recognizes "**Label:** value" and "**Label**: value".
func splitLabel(line string) (label, value string, ok bool) {
	if !strings.HasPrefix(line, "**") {
		return "", "", false
	}
	closing := strings.Index(line[2:], "**")
	if closing < 0 {
		return "", "", false
	}
	inner := strings.TrimSpace(line[2 : 2+closing])
	rest := line[2+closing+2:]
	switch {
	case strings.HasSuffix(inner, ":"):
		inner = strings.TrimSuffix(inner, ":")
	case strings.HasPrefix(rest, ":"):
		rest = rest[1:]
	default:
		return "", "", false
	}
	label = normalizeLabel(inner)
	if label == "" {
		return "", "", false
	}
	return label, strings.TrimSpace(rest), true
}

// normalizeLabel drops leading emoji and upper-cases the label so that
// "🛡️ Safety Rating" and "SAFETY RATING" compare equal.
func normalizeLabel(s string) string {
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	s = strings.ReplaceAll(s, "’", "'")
	return strings.ToUpper(strings.TrimSpace(s))
}
