package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// summaryPattern matches "<N> Followers, <N> Following, <N> Posts". The optional suffix
// groups capture abbreviations so that "1.2K" makes the strategy skip instead of mis-parsing.
// The follower count must not be preceded by another digit group, so "1 234 Followers"
// skips rather than matching from "234".
var summaryPattern = regexp.MustCompile(
	`(?i)(?:^|[^\d\s,.'\x{00a0}\x{202f}])\s*` +
		`(\d[\d,.'\x{00a0}\x{202f}]*)\s*([kmb])?\s+followers?\s*[,·•]\s*` +
		`(\d[\d,.'\x{00a0}\x{202f}]*)\s*([kmb])?\s+following\s*[,·•]\s*` +
		`(\d[\d,.'\x{00a0}\x{202f}]*)\s*([kmb])?\s+posts?`,
)

var descriptionSelectors = []string{
	`meta[property="og:description"]`,
	`meta[name="description"]`,
	`meta[name="twitter:description"]`,
}

// MetaDescription reads counts from the page's human readable description metadata.
func MetaDescription(content string, _ Baseline) (Result, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err == nil {
		for _, sel := range descriptionSelectors {
			var res Result
			var found bool
			doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
				desc, ok := s.Attr("content")
				if !ok {
					return true
				}
				res, found = parseSummary(desc)
				return !found
			})
			if found {
				return res, true
			}
		}
	}
	return parseSummary(content)
}

func parseSummary(text string) (Result, bool) {
	m := summaryPattern.FindStringSubmatch(text)
	if m == nil {
		return Result{}, false
	}
	if m[2] != "" || m[4] != "" || m[6] != "" {
		return Result{}, false
	}
	followers, err := ParseCount(m[1])
	if err != nil {
		return Result{}, false
	}
	following, err := ParseCount(m[3])
	if err != nil {
		return Result{}, false
	}
	posts, err := ParseCount(m[5])
	if err != nil {
		return Result{}, false
	}
	return Result{Followers: followers, Following: following, Posts: posts}, true
}
