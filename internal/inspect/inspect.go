// Package inspect renders a directory page and converts it to markdown so
// selectors can be discovered before writing a scrape config.
package inspect

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"leadgrab/internal/driver"
)

var tablePattern = regexp.MustCompile(`(?is)<table\b[^>]*>.*?</table>`)

// Dump navigates to url and returns the rendered page as markdown.
func Dump(ctx context.Context, drv driver.Driver, url string) (string, error) {
	if err := drv.Navigate(ctx, url); err != nil {
		return "", err
	}
	html, err := drv.HTML(ctx)
	if err != nil {
		return "", err
	}
	return Markdown(html)
}

// Markdown converts rendered HTML to markdown. Tables are converted to
// markdown tables separately and spliced in after the generic conversion,
// which would otherwise escape their pipes and dashes as literal text.
func Markdown(html string) (string, error) {
	var tables []string
	html = tablePattern.ReplaceAllStringFunc(html, func(tableHTML string) string {
		table, ok := tableToMarkdown(tableHTML)
		if !ok {
			return tableHTML
		}
		tables = append(tables, table)
		return "<p>" + tableToken(len(tables)-1) + "</p>"
	})

	converter := md.NewConverter("", true, nil)
	out, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert page to markdown: %w", err)
	}
	for i, table := range tables {
		out = strings.Replace(out, tableToken(i), table, 1)
	}
	return out, nil
}

// tableToken is plain alphanumeric text so the converter passes it through
// untouched.
func tableToken(i int) string {
	return fmt.Sprintf("leadgrabtable%dend", i)
}

// tableToMarkdown renders one HTML table as a markdown table. It reports
// false when the markup yields no rows, leaving the raw table in place.
func tableToMarkdown(tableHTML string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(tableHTML))
	if err != nil {
		return "", false
	}

	var b strings.Builder
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		headerRow := table.Find("thead tr").First()
		headerInBody := headerRow.Length() == 0
		if headerInBody {
			headerRow = table.Find("tr").First()
		}
		var headers []string
		headerRow.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, strings.TrimSpace(cell.Text()))
		})
		if len(headers) == 0 {
			return
		}

		b.WriteString("| " + strings.Join(headers, " | ") + " |\n")
		b.WriteString("|" + strings.Repeat(" --- |", len(headers)) + "\n")

		rows := table.Find("tbody tr")
		if headerInBody {
			// The parser wraps stray rows in an implicit tbody, so the
			// header row is part of this set and must be skipped.
			if rows.Length() == 0 {
				rows = table.Find("tr")
			}
			rows = rows.Slice(1, goquery.ToEnd)
		}
		rows.Each(func(_ int, row *goquery.Selection) {
			var cells []string
			row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(cell.Text()))
			})
			if len(cells) > 0 {
				b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
			}
		})
		b.WriteString("\n")
	})

	if b.Len() == 0 {
		return "", false
	}
	return b.String(), true
}
