package telegram

import (
	"regexp"
	"strings"
)

// Parse modes accepted by sendMessage and editMessageText.
const (
	ParseModeMarkdownV2 = "MarkdownV2"
)

// escapeReplacer escapes all characters reserved by Telegram MarkdownV2.
// Special chars: _ * [ ] ( ) ~ ` > # + - = | { } . !
var escapeReplacer = strings.NewReplacer(
	`_`, `\_`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`(`, `\(`,
	`)`, `\)`,
	`~`, `\~`,
	"`", "\\`",
	`>`, `\>`,
	`#`, `\#`,
	`+`, `\+`,
	`-`, `\-`,
	`=`, `\=`,
	`|`, `\|`,
	`{`, `\{`,
	`}`, `\}`,
	`.`, `\.`,
	`!`, `\!`,
)

// EscapeMarkdownV2 escapes all MarkdownV2 special characters in text.
func EscapeMarkdownV2(text string) string {
	return escapeReplacer.Replace(text)
}

// headingPrefix matches a markdown heading marker at the start of a line.
var headingPrefix = regexp.MustCompile(`^(\s*)#+\s*`)

// StripHeadings removes markdown heading markers ("#", "##", ...) from the
// start of each line. Telegram has no heading construct, so titles render
// as plain lines during streaming previews.
func StripHeadings(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = headingPrefix.ReplaceAllString(line, "$1")
	}
	return strings.Join(lines, "\n")
}

// FormatMarkdownV2 converts standard markdown to Telegram MarkdownV2.
// It maps **bold** to *bold*, keeps __underline__, leaves inline code and
// fenced code blocks untouched, and escapes everything else.
func FormatMarkdownV2(text string) string {
	var out strings.Builder
	inFence := false

	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			out.WriteByte('\n')
		}

		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			out.WriteString(line)
			continue
		}
		if inFence {
			out.WriteString(line)
			continue
		}

		formatLine(&out, line)
	}

	return out.String()
}

// formatLine rewrites one line of standard markdown into MarkdownV2.
func formatLine(out *strings.Builder, line string) {
	runes := []rune(line)
	n := len(runes)

	for i := 0; i < n; {
		// Inline code spans pass through unescaped.
		if runes[i] == '`' {
			if end := indexRune(runes, i+1, '`'); end > 0 {
				out.WriteString(string(runes[i : end+1]))
				i = end + 1
				continue
			}
		}

		// **text** becomes *text*; Telegram bolds with single asterisks.
		if hasPair(runes, i, '*') {
			if end := indexPair(runes, i+2, '*'); end > 0 {
				out.WriteByte('*')
				out.WriteString(EscapeMarkdownV2(string(runes[i+2 : end])))
				out.WriteByte('*')
				i = end + 2
				continue
			}
		}

		// __text__ stays double underscore (underline in MarkdownV2).
		if hasPair(runes, i, '_') {
			if end := indexPair(runes, i+2, '_'); end > 0 {
				out.WriteString("__")
				out.WriteString(EscapeMarkdownV2(string(runes[i+2 : end])))
				out.WriteString("__")
				i = end + 2
				continue
			}
		}

		out.WriteString(EscapeMarkdownV2(string(runes[i])))
		i++
	}
}

// hasPair reports whether runes[i] and runes[i+1] both equal delim.
func hasPair(runes []rune, i int, delim rune) bool {
	return i+1 < len(runes) && runes[i] == delim && runes[i+1] == delim
}

// indexRune returns the index of the next delim at or after start, or -1.
func indexRune(runes []rune, start int, delim rune) int {
	for i := start; i < len(runes); i++ {
		if runes[i] == delim {
			return i
		}
	}
	return -1
}

// indexPair returns the index of the first rune of the next delim pair
// at or after start, or -1.
func indexPair(runes []rune, start int, delim rune) int {
	for i := start; i < len(runes)-1; i++ {
		if runes[i] == delim && runes[i+1] == delim {
			return i
		}
	}
	return -1
}
