// Package markup builds Telegram MarkdownV2 message bodies.
//
// Telegram rejects a MarkdownV2 message outright if any reserved character in
// ordinary text is left unescaped. Builder makes the escaping decision by
// segment kind: prose is escaped exactly once when appended, code and
// pre-formatted blocks only get the backtick and backslash escaping the dialect
// requires inside them. Callers never concatenate raw markup.
package markup

import (
	"strconv"
	"strings"
	"unicode/utf16"
)

// ParseMode is the Bot API parse_mode value for bodies built here.
const ParseMode = "MarkdownV2"

// MaxMessageLength is the Bot API limit for a message text, in UTF-16 units
// after entity parsing. Compare it against UTF16Len of the rendered body, which
// still counts the markup characters and so never undercounts.
const MaxMessageLength = 4096

// Reserved lists the characters that must be backslash-escaped in prose.
const Reserved = "_*[]()~`>#+-=|{}.!"

var (
	proseEscaper = strings.NewReplacer(escapePairs(`\` + Reserved)...)
	codeEscaper  = strings.NewReplacer(escapePairs("`\\")...)
)

func escapePairs(chars string) []string {
	pairs := make([]string, 0, len(chars)*2)
	for _, c := range chars {
		pairs = append(pairs, string(c), `\`+string(c))
	}
	return pairs
}

// Escape backslash-escapes every reserved character and backslash in s.
// It is not idempotent: escaping twice shows literal backslashes.
func Escape(s string) string {
	return proseEscaper.Replace(s)
}

// escapeCode escapes the two characters MarkdownV2 reserves inside code and pre entities.
func escapeCode(s string) string {
	return codeEscaper.Replace(s)
}

type segmentKind int

const (
	kindProse segmentKind = iota
	kindEntity
	kindVerbatim
)

type segment struct {
	kind segmentKind
	text string // rendered form
}

// Builder accumulates typed segments. The zero value is ready to use.
type Builder struct {
	segments []segment
}

func (b *Builder) add(kind segmentKind, text string) *Builder {
	b.segments = append(b.segments, segment{kind: kind, text: text})
	return b
}

// Text appends escaped prose.
func (b *Builder) Text(s string) *Builder {
	return b.add(kindProse, Escape(s))
}

// Bold appends s as a bold entity.
func (b *Builder) Bold(s string) *Builder {
	return b.add(kindEntity, "*"+Escape(s)+"*")
}

// Italic appends s as an italic entity.
func (b *Builder) Italic(s string) *Builder {
	return b.add(kindEntity, "_"+Escape(s)+"_")
}

// Code appends s as inline code.
func (b *Builder) Code(s string) *Builder {
	return b.add(kindVerbatim, "`"+escapeCode(s)+"`")
}

// Block appends lines as one pre-formatted block delimited by triple backticks.
// Lines are not prose-escaped.
func (b *Builder) Block(lines ...string) *Builder {
	var sb strings.Builder
	sb.WriteString("```\n")
	for _, line := range lines {
		sb.WriteString(escapeCode(line))
		sb.WriteByte('\n')
	}
	sb.WriteString("```")
	return b.add(kindVerbatim, sb.String())
}

// Mention appends an inline mention of a Telegram user.
func (b *Builder) Mention(name string, userID int64) *Builder {
	return b.add(kindEntity, "["+Escape(name)+"](tg://user?id="+strconv.FormatInt(userID, 10)+")")
}

// Newline appends a line break.
func (b *Builder) Newline() *Builder {
	return b.add(kindProse, "\n")
}

// Len returns the rendered length in bytes.
func (b *Builder) Len() int {
	n := 0
	for _, s := range b.segments {
		n += len(s.text)
	}
	return n
}

// String renders the message body.
func (b *Builder) String() string {
	var sb strings.Builder
	sb.Grow(b.Len())
	for _, s := range b.segments {
		sb.WriteString(s.text)
	}
	return sb.String()
}

// UTF16Len returns the length of s in UTF-16 code units, the unit Telegram
// measures message text in.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// Truncate shortens s to at most max runes, marking the cut with an ellipsis.
// Apply it to raw text before appending, never to rendered markup.
func Truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}
