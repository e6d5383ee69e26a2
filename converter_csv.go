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
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CsvConverter handles CSV files.
type CsvConverter struct{}

// NewCsvConverter creates a new CsvConverter.
func NewCsvConverter() *CsvConverter {
	return &CsvConverter{}
}

func (c *CsvConverter) Accepts(info StreamInfo, _ *Call) bool {
	if info.Extension == ".csv" {
		return true
	}
	mime := strings.ToLower(info.MIMEType)
	return strings.HasPrefix(mime, "text/csv") || strings.HasPrefix(mime, "application/csv")
}

func (c *CsvConverter) Convert(_ context.Context, reader io.ReadSeeker, info StreamInfo, _ *Call) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	r := csv.NewReader(strings.NewReader(decodeText(data, info.Charset)))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse CSV: %w", err)
	}

	return &DocumentConverterResult{
		Markdown: renderMarkdownTable(records),
		Metadata: map[string]any{"rows": len(records)},
	}, nil
}

// renderMarkdownTable renders rows as a markdown table. The first row is the
// header and fixes the column count; short rows are padded, long rows cut.
func renderMarkdownTable(records [][]string) string {
	if len(records) == 0 {
		return ""
	}
	numCols := len(records[0])

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for i := 0; i < numCols; i++ {
			b.WriteString(" ")
			if i < len(cells) {
				b.WriteString(strings.ReplaceAll(cells[i], "|", `\|`))
			}
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	writeRow(records[0])
	sep := make([]string, numCols)
	for i := range sep {
		sep[i] = "---"
	}
	writeRow(sep)
	for _, row := range records[1:] {
		writeRow(row)
	}
	return b.String()
}
