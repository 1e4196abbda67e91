package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var headingLevels = map[string]int{
	"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6,
}

// TabContent extracts the text of a named content tab (Description,
// Features, Includes, Technical, Shipping, Inspiration). It tries a
// container whose id/class mentions the tab name, then the target of a
// tab-navigation anchor, then the blocks following a heading with that
// exact text. Output is whitespace-normalized and capped.
func (e *Extractor) TabContent(doc *goquery.Document, name string) string {
	if container := e.tabContainer(doc, name); container != nil {
		if content := renderBlocks(container); content != "" {
			return truncate(content, maxContentLength)
		}
	}

	if content := e.contentAfterHeading(doc, name); content != "" {
		return truncate(content, maxContentLength)
	}

	return ""
}

func (e *Extractor) tabContainer(doc *goquery.Document, name string) *goquery.Selection {
	nameRe := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(strings.ToLower(name)))

	var container *goquery.Selection
	doc.Find("div, section").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		class, _ := s.Attr("class")
		if nameRe.MatchString(id) || nameRe.MatchString(class) {
			container = s
			return false
		}
		return true
	})
	if container != nil {
		return container
	}

	// Tab navigation: <a href="#panel">Features</a> pointing at a panel.
	doc.Find("a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(cleanText(s.Text()), name) {
			return true
		}
		href, _ := s.Attr("href")
		if !strings.HasPrefix(href, "#") || len(href) < 2 {
			return true
		}
		if panel := doc.Find("#" + href[1:]).First(); panel.Length() > 0 {
			container = panel
			return false
		}
		return true
	})
	return container
}

// contentAfterHeading concatenates sibling blocks after a heading whose
// text equals name, stopping at the next heading of equal or higher level.
func (e *Extractor) contentAfterHeading(doc *goquery.Document, name string) string {
	var heading *goquery.Selection
	level := 7
	doc.Find("h2, h3, h4, strong").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.EqualFold(cleanText(s.Text()), name) {
			heading = s
			if l, ok := headingLevels[goquery.NodeName(s)]; ok {
				level = l
			}
			return false
		}
		return true
	})
	if heading == nil {
		return ""
	}

	var parts []string
	for sibling := heading.Next(); sibling.Length() > 0; sibling = sibling.Next() {
		tag := goquery.NodeName(sibling)
		if l, ok := headingLevels[tag]; ok && l <= level {
			if !strings.EqualFold(cleanText(sibling.Text()), name) {
				break
			}
		}

		if part := renderBlock(sibling); part != "" {
			parts = append(parts, part)
		}
	}

	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// renderBlocks renders a container's paragraphs, lists and tables. When a
// container has no structured children its raw text is used.
func renderBlocks(container *goquery.Selection) string {
	container.Find("script, style").Remove()

	var parts []string

	container.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := cleanText(p.Text()); text != "" {
			parts = append(parts, text)
		}
	})

	container.Find("ul, ol").Each(func(_ int, list *goquery.Selection) {
		if rendered := renderList(list); rendered != "" {
			parts = append(parts, rendered)
		}
	})

	container.Find("table").Each(func(_ int, table *goquery.Selection) {
		if rendered := renderTable(table); rendered != "" {
			parts = append(parts, rendered)
		}
	})

	if len(parts) == 0 {
		return cleanText(container.Text())
	}
	return strings.Join(parts, "\n\n")
}

func renderBlock(s *goquery.Selection) string {
	s.Find("script, style").Remove()

	switch goquery.NodeName(s) {
	case "ul", "ol":
		return renderList(s)
	case "table":
		return renderTable(s)
	default:
		return cleanText(s.Text())
	}
}

func renderList(list *goquery.Selection) string {
	var items []string
	list.Find("li").Each(func(_ int, li *goquery.Selection) {
		if text := cleanText(li.Text()); text != "" {
			items = append(items, "• "+text)
		}
	})
	return strings.Join(items, "\n")
}

func renderTable(table *goquery.Selection) string {
	var rows []string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		nonEmpty := false
		tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			text := cleanText(cell.Text())
			if text != "" {
				nonEmpty = true
			}
			cells = append(cells, text)
		})
		if nonEmpty {
			rows = append(rows, strings.Join(cells, " | "))
		}
	})
	return strings.Join(rows, "\n")
}
