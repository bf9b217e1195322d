package rules

import (
	"regexp"
	"strings"
)

// globToRegex converts a filename glob to a regex body (no anchors).
//
//   - `*` matches any run of characters, `?` exactly one
//   - `[...]` is a class; a leading `!` or `^` negates it and a `]` right
//     after the opening bracket (or the negation) is literal
//   - `{a,b}` is an alternation of literal-or-wildcard alternatives
//   - `\x` matches x literally
//
// Unterminated classes and alternations are matched literally.
func globToRegex(pattern string) string {
	return translateGlob([]rune(pattern), true)
}

func translateGlob(pat []rune, allowBraces bool) string {
	var b strings.Builder

	for i := 0; i < len(pat); i++ {
		c := pat[i]
		switch c {
		case '\\':
			if i+1 < len(pat) {
				i++
				b.WriteString(regexp.QuoteMeta(string(pat[i])))
			} else {
				b.WriteString(`\\`)
			}
		case '*':
			b.WriteString(`.*`)
		case '?':
			b.WriteString(`.`)
		case '[':
			end := findClassEnd(pat, i)
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			b.WriteString(translateClass(pat[i+1 : end]))
			i = end
		case '{':
			if !allowBraces {
				b.WriteString(`\{`)
				continue
			}
			end := findBraceEnd(pat, i)
			if end < 0 {
				b.WriteString(`\{`)
				continue
			}
			alternatives := splitAlternatives(pat[i+1 : end])
			b.WriteString(`(?:`)
			for n, alt := range alternatives {
				if n > 0 {
					b.WriteString(`|`)
				}
				b.WriteString(translateGlob(alt, false))
			}
			b.WriteString(`)`)
			i = end
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	return b.String()
}

// findClassEnd returns the index of the bracket closing the class opened at
// start, or -1.
func findClassEnd(pat []rune, start int) int {
	i := start + 1
	if i < len(pat) && (pat[i] == '!' || pat[i] == '^') {
		i++
	}
	// A leading ']' is part of the class.
	if i < len(pat) && pat[i] == ']' {
		i++
	}
	for ; i < len(pat); i++ {
		switch pat[i] {
		case '\\':
			i++
		case ']':
			return i
		}
	}
	return -1
}

func translateClass(body []rune) string {
	var b strings.Builder
	b.WriteString(`[`)

	i := 0
	if i < len(body) && (body[i] == '!' || body[i] == '^') {
		b.WriteString(`^`)
		i++
	}

	for ; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\' && i+1 < len(body):
			i++
			if isASCIIPunct(body[i]) {
				b.WriteString(`\`)
			}
			b.WriteRune(body[i])
		case c == '-':
			b.WriteRune(c)
		case c == '\\' || c == '[' || c == ']' || c == '^':
			b.WriteString(`\`)
			b.WriteRune(c)
		default:
			b.WriteRune(c)
		}
	}

	b.WriteString(`]`)
	return b.String()
}

func isASCIIPunct(r rune) bool {
	return r < 0x80 && strings.ContainsRune("!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~", r)
}

func findBraceEnd(pat []rune, start int) int {
	for i := start + 1; i < len(pat); i++ {
		switch pat[i] {
		case '\\':
			i++
		case '}':
			return i
		}
	}
	return -1
}

func splitAlternatives(body []rune) [][]rune {
	var alternatives [][]rune
	last := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '\\':
			i++
		case ',':
			alternatives = append(alternatives, body[last:i])
			last = i + 1
		}
	}
	return append(alternatives, body[last:])
}
