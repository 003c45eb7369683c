package extraction

import (
	"regexp"
	"strings"
	"unicode"

	"resumeanalyzer/internal/domain"
)

// PageSeparator joins page texts into ExtractionResult.Text.
const PageSeparator = "\n\n"

var (
	reInlineSpace = regexp.MustCompile(`[ \t\f\v\r]+`)
	reBlankLines  = regexp.MustCompile(`\n{3,}`)
)

// normalizeText collapses runs of inline whitespace, trims each line and
// drops non-printable runes. Line breaks survive.
func normalizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsSpace(r) {
			return ' '
		}
		if r == unicode.ReplacementChar || (r >= 0xE000 && r <= 0xF8FF) || !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, s)
	s = reInlineSpace.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = strings.Join(lines, "\n")
	s = reBlankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// visibleChars counts the non-whitespace runes in s.
func visibleChars(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// buildPages normalises raw page texts and marks which carry usable text.
func buildPages(raw []string, minChars int) []domain.PageText {
	pages := make([]domain.PageText, len(raw))
	for i, text := range raw {
		text = normalizeText(text)
		n := visibleChars(text)
		pages[i] = domain.PageText{
			Number: i + 1,
			Text:   text,
			Usable: n > 0 && n >= minChars,
		}
	}
	return pages
}

// usableRatio is the share of pages with usable text, 0 for no pages.
func usableRatio(pages []domain.PageText) float64 {
	if len(pages) == 0 {
		return 0
	}
	usable := 0
	for _, p := range pages {
		if p.Usable {
			usable++
		}
	}
	return float64(usable) / float64(len(pages))
}

func allEmpty(pages []domain.PageText) bool {
	for _, p := range pages {
		if p.Text != "" {
			return false
		}
	}
	return true
}

func joinPages(pages []domain.PageText) string {
	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.Text
	}
	return strings.Join(texts, PageSeparator)
}
