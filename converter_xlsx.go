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
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XlsxConverter handles XLSX workbooks, one markdown table per sheet.
type XlsxConverter struct{}

// NewXlsxConverter creates a new XlsxConverter.
func NewXlsxConverter() *XlsxConverter {
	return &XlsxConverter{}
}

func (c *XlsxConverter) Accepts(info StreamInfo, _ *Call) bool {
	if info.Extension == ".xlsx" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(info.MIMEType), "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
}

func (c *XlsxConverter) Convert(ctx context.Context, reader io.ReadSeeker, _ StreamInfo, _ *Call) (*DocumentConverterResult, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("open XLSX: %w", err)
	}
	defer f.Close()

	var sheets []sheetTable
	for _, name := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		sheets = append(sheets, sheetTable{name: name, rows: rows})
	}

	return renderWorkbook(sheets), nil
}

type sheetTable struct {
	name string
	rows [][]string
}

// renderWorkbook writes each non-empty sheet as "## name" plus a table.
// Shared by the XLSX and XLS converters.
func renderWorkbook(sheets []sheetTable) *DocumentConverterResult {
	var md strings.Builder
	names := make([]string, 0, len(sheets))
	for _, s := range sheets {
		names = append(names, s.name)
		if len(s.rows) == 0 {
			continue
		}
		fmt.Fprintf(&md, "## %s\n", s.name)
		md.WriteString(renderMarkdownTable(s.rows))
		md.WriteString("\n")
	}
	return &DocumentConverterResult{
		Markdown: md.String(),
		Metadata: map[string]any{"sheets": names},
	}
}
