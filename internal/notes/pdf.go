package notes

import (
	"fmt"
	"math"
	"os"
	"strings"

	"rsc.io/pdf"
)

// pdfText extracts the text of every page, one line per text row.  Rows
// are emitted in content-stream order.
func pdfText(path string) (text string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open note: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat note: %w", err)
	}

	// The reader panics on malformed content streams.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("read pdf %s: %v", path, r)
		}
	}()

	r, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return "", fmt.Errorf("read pdf %s: %w", path, err)
	}
	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pages = append(pages, pageText(p.Content().Text))
	}
	return strings.Join(pages, "\n"), nil
}

// pageText joins glyphs into lines.  A change of baseline starts a new
// line; a horizontal gap wider than a fifth of the font size becomes a
// space.
func pageText(glyphs []pdf.Text) string {
	var b strings.Builder
	var prev *pdf.Text
	for i := range glyphs {
		g := &glyphs[i]
		if prev != nil {
			switch {
			case math.Abs(g.Y-prev.Y) > 0.5:
				b.WriteByte('\n')
			case g.X-(prev.X+prev.W) > g.FontSize/5 && prev.S != " " && g.S != " ":
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
		prev = g
	}
	return b.String()
}
