// Package extract derives structured metadata from free-text document titles.
//
// The patterns are heuristic and checked in a fixed order; overlapping
// matches resolve to whichever pattern is tried first. Downstream search
// behavior depends on that order, so it must not be rearranged.
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Metadata holds the attributes extracted from a title. Zero values mean
// the corresponding pattern did not match.
type Metadata struct {
	Year        int
	Semester    string
	Subject     string
	Month       string
	CourseLevel string
	SearchText  string
}

// Year patterns, tried in order: bare 4-digit year, academic range with
// 2-digit tail, full range. The first match wins, then the embedded
// 4-digit year starting with "20" is taken ("2024-25" yields 2024).
var yearPatterns = []*regexp.Regexp{
	regexp.MustCompile(`20\d{2}`),
	regexp.MustCompile(`\d{4}-\d{2}`),
	regexp.MustCompile(`\d{4}-\d{4}`),
}

var embeddedYear = regexp.MustCompile(`20\d{2}`)

// Semester alternatives use word boundaries so "IV" doesn't match inside
// unrelated words. Checked in order I through VI.
var semesterPatterns = []struct {
	re    *regexp.Regexp
	value string
}{
	{regexp.MustCompile(`(?i)\bI\b|\b1st\b|\bfirst\b`), "I"},
	{regexp.MustCompile(`(?i)\bII\b|\b2nd\b|\bsecond\b`), "II"},
	{regexp.MustCompile(`(?i)\bIII\b|\b3rd\b|\bthird\b`), "III"},
	{regexp.MustCompile(`(?i)\bIV\b|\b4th\b|\bfourth\b`), "IV"},
	{regexp.MustCompile(`(?i)\bV\b|\b5th\b|\bfifth\b`), "V"},
	{regexp.MustCompile(`(?i)\bVI\b|\b6th\b|\bsixth\b`), "VI"},
}

var months = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

var (
	ugPattern = regexp.MustCompile(`\bu\.?g\.?\b|\bundergraduate\b`)
	pgPattern = regexp.MustCompile(`\bp\.?g\.?\b|\bpostgraduate\b`)
)

// Known subject keywords, matched as case-insensitive substrings in order.
// "computer" also matches inside "computer science".
var subjects = []string{
	"physics", "chemistry", "mathematics", "biology", "computer",
	"english", "hindi", "commerce", "economics", "history",
	"geography", "political science", "sociology", "psychology",
	"statistics", "botany", "zoology", "microbiology", "biotechnology",
}

// Extract classifies a title into structured metadata. It is deterministic,
// side-effect free, and never fails: an unmatched pattern just leaves the
// field unset.
func Extract(title, section string) Metadata {
	var md Metadata
	titleLower := strings.ToLower(title)

	for _, p := range yearPatterns {
		m := p.FindString(title)
		if m == "" {
			continue
		}
		if y := embeddedYear.FindString(m); y != "" {
			md.Year, _ = strconv.Atoi(y)
			break
		}
	}

	for _, p := range semesterPatterns {
		if p.re.MatchString(title) {
			md.Semester = p.value
			break
		}
	}

	for _, m := range months {
		if strings.Contains(titleLower, m) {
			md.Month = strings.ToUpper(m[:1]) + m[1:]
			break
		}
	}

	// UG is checked before PG; a title matching both is classified UG.
	if ugPattern.MatchString(titleLower) {
		md.CourseLevel = "UG"
	} else if pgPattern.MatchString(titleLower) {
		md.CourseLevel = "PG"
	}

	for _, s := range subjects {
		if strings.Contains(titleLower, s) {
			md.Subject = titleCase(s)
			break
		}
	}

	md.SearchText = buildSearchText(title, section, md)
	return md
}

// buildSearchText joins the non-empty values in a fixed order and lowercases
// the result. It is regenerated on every extraction, never stored stale.
func buildSearchText(title, section string, md Metadata) string {
	parts := []string{title, section, md.Subject, md.Semester, md.Month, md.CourseLevel}
	if md.Year != 0 {
		parts = append(parts, strconv.Itoa(md.Year))
	}
	joined := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			joined = append(joined, p)
		}
	}
	return strings.ToLower(strings.Join(joined, " "))
}

// titleCase capitalizes the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
