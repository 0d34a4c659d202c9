package investing

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"investohlcv/internal/domain"
)

// Column order of the historical data table.
const (
	colDate = iota
	colClose
	colOpen
	colHigh
	colLow
	colVolume
	colChange
	minColumns = colVolume + 1
)

// parseHistoryTable extracts bars from the rows of the curr_table element.
// Rows that do not carry a full set of cells, such as the "No results found"
// placeholder, are skipped.
func parseHistoryTable(r io.Reader) ([]domain.RawBar, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	table := findByID(doc, "curr_table")
	if table == nil {
		return nil, fmt.Errorf("history table not found")
	}

	var bars []domain.RawBar
	for _, row := range findAll(table, atom.Tr) {
		cells := findAll(row, atom.Td)
		if len(cells) < minColumns {
			continue
		}
		bar, err := parseRow(cells)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func parseRow(cells []*html.Node) (domain.RawBar, error) {
	var bar domain.RawBar

	ts, err := strconv.ParseInt(realValue(cells[colDate]), 10, 64)
	if err != nil {
		return bar, fmt.Errorf("row date %q: %w", realValue(cells[colDate]), err)
	}
	bar.Date = time.Unix(ts, 0).UTC()

	for _, f := range []struct {
		col int
		dst *float64
	}{
		{colClose, &bar.Close},
		{colOpen, &bar.Open},
		{colHigh, &bar.High},
		{colLow, &bar.Low},
	} {
		if *f.dst, err = parseNumber(realValue(cells[f.col])); err != nil {
			return bar, fmt.Errorf("row %s column %d: %w", bar.Date.Format("2006-01-02"), f.col, err)
		}
	}

	// Indices often report no volume.
	if v, err := parseNumber(realValue(cells[colVolume])); err == nil {
		bar.Volume = int64(v)
	}
	if len(cells) > colChange {
		pct := strings.TrimSuffix(strings.TrimSpace(text(cells[colChange])), "%")
		if v, err := parseNumber(pct); err == nil {
			bar.ChangePct = v
		}
	}
	return bar, nil
}

func parseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "-" {
		return 0, fmt.Errorf("empty number")
	}
	return strconv.ParseFloat(s, 64)
}

func realValue(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key == "data-real-value" {
			return a.Val
		}
	}
	return text(n)
}

func text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// findAll returns the descendants of n with the given tag in document order.
func findAll(n *html.Node, tag atom.Atom) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == tag {
			out = append(out, c)
			continue
		}
		out = append(out, findAll(c, tag)...)
	}
	return out
}
