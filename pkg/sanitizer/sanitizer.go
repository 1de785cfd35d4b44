package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeTitle cleans a single-line label such as a booking title.
func SanitizeTitle(input string) string {
	return Pipeline{stripControl, TrimAndNormalize}.Apply(input)
}

// SanitizeText cleans multi-line prose such as a purpose or reject reason.
// Line breaks survive, runs of blank lines collapse to one.
func SanitizeText(input string) string {
	input = stripControl(strings.ReplaceAll(input, "\r\n", "\n"))

	lines := strings.Split(input, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = TrimAndNormalize(line)
		if line == "" {
			if blank || len(out) == 0 {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// SanitizeID trims identifiers received in paths, headers and bodies.
func SanitizeID(id string) string {
	return strings.TrimSpace(id)
}

func SanitizeSlice(values []string, strategy Strategy) []string {
	seen := make(map[string]struct{})
	out := []string{}

	for _, v := range values {
		s := strategy(v)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}
