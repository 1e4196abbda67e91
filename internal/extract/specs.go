package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bathingbrands/catalog-scraper/internal/models"
)

var specListClassRe = regexp.MustCompile(`(?i)spec|feature|detail`)

// quantityPatterns pull common engineering quantities out of raw page text
// when no structured specification markup exists.
var quantityPatterns = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"Power", regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*kW`)},
	{"Voltage", regexp.MustCompile(`(\d+)V\b`)},
	{"Amperage", regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*Amps?`)},
	{"Weight", regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*lbs?`)},
	{"Capacity", regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:cubic feet|CF|cu\.?\s*ft)`)},
	{"Width", regexp.MustCompile(`(?i)Width:?\s*(\d+(?:\.\d+)?)"?`)},
	{"Height", regexp.MustCompile(`(?i)Height:?\s*(\d+(?:\.\d+)?)"?`)},
	{"Depth", regexp.MustCompile(`(?i)Depth:?\s*(\d+(?:\.\d+)?)"?`)},
}

// Specifications merges four sources into one ordered (name, value) list:
// two-column table rows, colon-separated list items, definition lists, and
// quantity regexes over raw text. The first value seen for a name wins;
// later sources never overwrite it.
func (e *Extractor) Specifications(doc *goquery.Document) []models.Specification {
	seen := make(map[string]struct{})
	var specs []models.Specification

	add := func(name, value string) {
		name = cleanText(name)
		value = cleanText(value)
		if name == "" || value == "" {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		specs = append(specs, models.Specification{Name: name, Value: value})
	}

	doc.Find("table tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td, th")
		if cells.Length() >= 2 {
			add(cells.Eq(0).Text(), cells.Eq(1).Text())
		}
	})

	doc.Find("ul, ol").Each(func(_ int, list *goquery.Selection) {
		class, _ := list.Attr("class")
		if !specListClassRe.MatchString(class) {
			return
		}
		list.Find("li").Each(func(_ int, li *goquery.Selection) {
			text := cleanText(li.Text())
			if name, value, ok := strings.Cut(text, ":"); ok {
				add(name, value)
			}
		})
	})

	doc.Find("dl").Each(func(_ int, dl *goquery.Selection) {
		terms := dl.Find("dt")
		defs := dl.Find("dd")
		n := terms.Length()
		if defs.Length() < n {
			n = defs.Length()
		}
		for i := 0; i < n; i++ {
			add(terms.Eq(i).Text(), defs.Eq(i).Text())
		}
	})

	text := doc.Text()
	for _, q := range quantityPatterns {
		if match := q.pattern.FindStringSubmatch(text); match != nil {
			add(q.name, match[1])
		}
	}

	return specs
}
