package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_Accepts(t *testing.T) {
	tests := []string{
		"",
		"plain text",
		Escape(Reserved),
		`*bold* and _italic_ and ~strike~`,
		"`inline (code) with - and .`",
		"```\nName: Purnima (15)\nRemaining: 42.5%\n```",
		`[Ravi\_K](tg://user?id=42) hi\!`,
		"🕉️ *Panchang Details for:* `Saturday, December 13, 2025`",
	}
	for _, s := range tests {
		assert.NoError(t, Validate(s), "Validate(%q)", s)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := map[string]string{
		"unescaped dot":          "Error: HTTP 403.",
		"unescaped dash":         "13-12-2025",
		"unescaped paren":        "(Theni, TN)",
		"unescaped bang":         "hi!",
		"unbalanced bold":        "*bold",
		"unbalanced italic":      "_italic",
		"unterminated code":      "`code",
		"unterminated pre":       "```\nfoo",
		"trailing backslash":     `abc\`,
		"bare backtick in pre":   "```\na`b\n```",
		"close bracket alone":    "a]b",
		"link without target":    "[text]",
		"unterminated link":      "[text",
		"unterminated target":    "[text](tg://user?id=1",
		"double escaped in text": Escape(Escape(".")) + ".",
	}
	for name, s := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, Validate(s), ErrInvalidMarkup)
		})
	}
}

func TestValidate_BuilderOutputIsValid(t *testing.T) {
	var b Builder
	b.Text("❌ ").Bold("Error:").Text(" "+Reserved+`\`).Newline().
		Italic("a.b (c) | d").Newline().
		Code("x`y").Newline().
		Block("line with ``` inside", "Name: N/A").
		Mention("*name*", 7)
	assert.NoError(t, Validate(b.String()), b.String())
}
