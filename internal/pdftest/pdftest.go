// Package pdftest generates minimal single-font PDF files for tests. The
// generated files carry one page per slide with each text line drawn as a
// separate row, which is enough for row-based text extraction.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"strings"
)

// WriteDeck writes a PDF to path with one page per entry in pages; every
// string in an entry becomes one text line on that page, top to bottom.
func WriteDeck(path string, pages [][]string) error {
	var buf bytes.Buffer
	var offsets []int

	addObject := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	// Object layout: 1 catalog, 2 page tree, 3 font, then a page and a
	// content stream object per page.
	kids := make([]string, 0, len(pages))
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+2*i))
	}

	addObject("<< /Type /Catalog /Pages 2 0 R >>")
	addObject(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>",
		strings.Join(kids, " "), len(pages)))
	addObject("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	for i, lines := range pages {
		pageNum := 4 + 2*i
		contentNum := pageNum + 1

		addObject(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", contentNum))

		var content strings.Builder
		for j, line := range lines {
			fmt.Fprintf(&content, "BT /F1 12 Tf 1 0 0 1 72 %d Tm (%s) Tj ET\n",
				720-24*j, escapeText(line))
		}
		stream := content.String()
		addObject(fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", len(stream), stream))
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, offset := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xrefOffset)

	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func escapeText(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return replacer.Replace(s)
}
