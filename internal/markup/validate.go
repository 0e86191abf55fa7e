package markup

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidMarkup is wrapped by every Validate failure.
var ErrInvalidMarkup = errors.New("invalid MarkdownV2")

// Validate checks s against the MarkdownV2 escaping rules Telegram enforces:
// reserved characters outside entities must be escaped, code and pre entities
// must be closed and may not contain a bare backtick, and bold, italic and
// strikethrough delimiters must balance. It is the last gate before sending.
func Validate(s string) error {
	var (
		inPre, inCode, inLinkText bool
		bold, italic, strike      bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' {
			if i+1 >= len(s) {
				return fmt.Errorf("%w: trailing backslash", ErrInvalidMarkup)
			}
			i++
			continue
		}
		if inPre {
			if strings.HasPrefix(s[i:], "```") {
				inPre = false
				i += 2
			} else if c == '`' {
				return fmt.Errorf("%w: bare backtick inside pre block at byte %d", ErrInvalidMarkup, i)
			}
			continue
		}
		if inCode {
			if c == '`' {
				inCode = false
			}
			continue
		}
		switch {
		case strings.HasPrefix(s[i:], "```"):
			inPre = true
			i += 2
		case c == '`':
			inCode = true
		case c == '*':
			bold = !bold
		case c == '_':
			italic = !italic
		case c == '~':
			strike = !strike
		case c == '[':
			if inLinkText {
				return fmt.Errorf("%w: nested link at byte %d", ErrInvalidMarkup, i)
			}
			inLinkText = true
		case c == ']':
			if !inLinkText || i+1 >= len(s) || s[i+1] != '(' {
				return fmt.Errorf("%w: unescaped ']' at byte %d", ErrInvalidMarkup, i)
			}
			end, err := linkTargetEnd(s, i+2)
			if err != nil {
				return err
			}
			inLinkText = false
			i = end
		case strings.IndexByte(Reserved, c) >= 0:
			return fmt.Errorf("%w: unescaped %q at byte %d", ErrInvalidMarkup, c, i)
		}
	}
	switch {
	case inPre:
		return fmt.Errorf("%w: unterminated pre block", ErrInvalidMarkup)
	case inCode:
		return fmt.Errorf("%w: unterminated inline code", ErrInvalidMarkup)
	case inLinkText:
		return fmt.Errorf("%w: unterminated link", ErrInvalidMarkup)
	case bold || italic || strike:
		return fmt.Errorf("%w: unbalanced entity delimiter", ErrInvalidMarkup)
	}
	return nil
}

// linkTargetEnd returns the index of the ')' closing a link target starting at i.
// Inside the target only ')' and '\' need escaping.
func linkTargetEnd(s string, i int) (int, error) {
	for ; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case ')':
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: unterminated link target", ErrInvalidMarkup)
}
