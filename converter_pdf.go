// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package markitdown

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfPermExtract is bit 5 of the /P entry in the encryption dictionary
// (ISO 32000-1, table 22): copy or otherwise extract text and graphics.
const pdfPermExtract = 1 << 4

// PdfConverter handles PDF files.
type PdfConverter struct{}

// NewPdfConverter creates a new PdfConverter.
func NewPdfConverter() *PdfConverter {
	return &PdfConverter{}
}

func (c *PdfConverter) Accepts(info StreamInfo, _ *Call) bool {
	if info.Extension == ".pdf" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(info.MIMEType), "application/pdf")
}

func (c *PdfConverter) Convert(ctx context.Context, reader io.ReadSeeker, _ StreamInfo, call *Call) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read PDF: %w", err)
	}

	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	if call.CheckExtractable && !pdfExtractable(pdfReader) {
		return nil, &NotExtractableError{}
	}

	var md strings.Builder
	numPages := pdfReader.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text := strings.TrimSpace(pageText(page))
		if text == "" {
			continue
		}
		md.WriteString(text)
		md.WriteString("\n\n")
	}

	result := md.String()
	if strings.TrimSpace(result) == "" {
		result = "[No readable text content found in PDF]"
	}

	title := ""
	if info := pdfReader.Trailer().Key("Info"); !info.IsNull() {
		title = strings.TrimSpace(info.Key("Title").Text())
	}

	return &DocumentConverterResult{
		Markdown: result,
		Title:    title,
		Metadata: map[string]any{"pages": numPages},
	}, nil
}

// pdfExtractable reports whether the document permits text extraction.
// Unencrypted documents always do.
func pdfExtractable(r *pdf.Reader) bool {
	enc := r.Trailer().Key("Encrypt")
	if enc.IsNull() {
		return true
	}
	p := enc.Key("P")
	if p.Kind() != pdf.Integer {
		return true
	}
	return p.Int64()&pdfPermExtract != 0
}

// pageText prefers row-grouped words and falls back to positioned glyphs.
func pageText(page pdf.Page) string {
	if text := rowText(page); strings.TrimSpace(text) != "" {
		return text
	}
	return positionedText(page)
}

// rowText joins GetTextByRow output. An empty word between two non-empty
// ones marks a word boundary.
func rowText(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err != nil {
		return ""
	}
	var out strings.Builder
	for _, row := range rows {
		var line strings.Builder
		gap := false
		for _, word := range row.Content {
			if word.S == "" {
				gap = true
				continue
			}
			if gap && line.Len() > 0 && !strings.HasSuffix(line.String(), " ") {
				line.WriteByte(' ')
			}
			line.WriteString(word.S)
			gap = false
		}
		if text := strings.TrimSpace(line.String()); text != "" {
			out.WriteString(text)
			out.WriteByte('\n')
		}
	}
	return out.String()
}

type glyphRun struct {
	x, y, size float64
	text       string
}

// positionedText rebuilds lines from glyph coordinates: runs within a
// font-relative Y tolerance share a line, lines go top to bottom and a
// horizontal gap wider than a fifth of the font size becomes a space.
func positionedText(page pdf.Page) string {
	var runs []glyphRun
	for _, t := range page.Content().Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		runs = append(runs, glyphRun{x: t.X, y: t.Y, size: t.FontSize, text: t.S})
	}
	if len(runs) == 0 {
		return ""
	}

	tolerance := 3.0
	if runs[0].size > 0 {
		tolerance = runs[0].size * 0.3
	}

	var lines [][]glyphRun
	var lineY []float64
	for _, run := range runs {
		placed := false
		for i, y := range lineY {
			if math.Abs(y-run.y) < tolerance {
				lines[i] = append(lines[i], run)
				placed = true
				break
			}
		}
		if !placed {
			lines = append(lines, []glyphRun{run})
			lineY = append(lineY, run.y)
		}
	}

	order := make([]int, len(lines))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return lineY[order[a]] > lineY[order[b]] })

	var out strings.Builder
	for _, idx := range order {
		line := lines[idx]
		sort.Slice(line, func(a, b int) bool { return line[a].x < line[b].x })

		var b strings.Builder
		var end float64
		for i, run := range line {
			if i > 0 && run.x-end > math.Max(run.size*0.2, 1.0) {
				b.WriteByte(' ')
			}
			b.WriteString(run.text)
			end = run.x + float64(len([]rune(run.text)))*run.size*0.55
		}
		if text := b.String(); strings.TrimSpace(text) != "" {
			out.WriteString(text)
			out.WriteByte('\n')
		}
	}
	return out.String()
}
