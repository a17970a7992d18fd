package feed

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

type taxonomyToken struct {
	label   string
	pattern *regexp.Regexp
}

// taxonomy is checked in order, first match wins. Amendments precede their
// base form so "10-K/A" is not reported as "10-K".
var taxonomy = []taxonomyToken{
	token("10-K/A", `10[- ]?K/A`),
	token("10-Q/A", `10[- ]?Q/A`),
	token("8-K/A", `8[- ]?K/A`),
	token("10-K", `10[- ]?K(?:405)?`),
	token("10-Q", `10[- ]?Q`),
	token("8-K", `8[- ]?K`),
	token("20-F", `20[- ]?F`),
	token("40-F", `40[- ]?F`),
	token("6-K", `6[- ]?K`),
	token("11-K", `11[- ]?K`),
	token("S-1", `S[- ]?1`),
	token("S-3", `S[- ]?3`),
	token("S-4", `S[- ]?4`),
	token("S-8", `S[- ]?8`),
	token("DEF 14A", `DEF[- ]?14A`),
	token("DEFA14A", `DEFA[- ]?14A`),
	token("SC 13D", `SC[- ]?13D(?:/A)?`),
	token("SC 13G", `SC[- ]?13G(?:/A)?`),
	token("13F-HR", `13F[- ]?HR`),
	token("424B", `424B[1-8]?`),
	token("N-CSR", `N[- ]?CSR`),
	token("N-PORT", `N[- ]?PORT`),
}

// formPattern catches ad hoc labels such as "Form 4" or "Form 8A".
var formPattern = regexp.MustCompile(`(?i)\bform\s+(\d+[a-z]?)\b`)

func token(label, expr string) taxonomyToken {
	return taxonomyToken{
		label:   label,
		pattern: regexp.MustCompile(`(?i)\b` + expr + `\b`),
	}
}

// Classify maps free text to a filing type label, or nil when nothing in the
// taxonomy matches.
func Classify(title, summary string) *string {
	candidate := norm.NFKC.String(strings.TrimSpace(title + " " + summary))
	if candidate == "" {
		return nil
	}

	for _, t := range taxonomy {
		if t.pattern.MatchString(candidate) {
			label := t.label
			return &label
		}
	}

	if m := formPattern.FindStringSubmatch(candidate); m != nil {
		label := "Form " + strings.ToUpper(m[1])
		return &label
	}

	return nil
}
