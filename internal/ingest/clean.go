package ingest

import (
	"strings"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// nbsp variants that show up in scraped scorecard names.
var nbspReplacer = strings.NewReplacer(" ", " ", " ", " ")

// CleanName canonicalizes a natural-key string before it is used for joins
// or de-duplication: NFC-normalize, replace non-breaking spaces, trim, and
// collapse internal runs of whitespace. Names must be cleaned identically on
// every path (registry, players list, deliveries) or the reference joins
// will silently miss.
func CleanName(s string) string {
	out, _, err := transform.String(norm.NFC, s)
	if err != nil {
		out = s
	}
	out = nbspReplacer.Replace(out)
	return strings.Join(strings.Fields(out), " ")
}
