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
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// maxZipMemberSize bounds how much of a single archive member is inflated.
const maxZipMemberSize = 64 << 20

// ZipConverter expands archives and converts every member it can. It is
// registered as a plugin, so calls with plugins disabled skip it.
type ZipConverter struct{}

// NewZipConverter creates a new ZipConverter.
func NewZipConverter() *ZipConverter {
	return &ZipConverter{}
}

func (c *ZipConverter) Accepts(info StreamInfo, _ *Call) bool {
	return info.Extension == ".zip" || strings.HasPrefix(strings.ToLower(info.MIMEType), "application/zip")
}

func (c *ZipConverter) Convert(ctx context.Context, reader io.ReadSeeker, info StreamInfo, call *Call) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read ZIP: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open ZIP: %w", err)
	}

	name := info.Filename
	if name == "" {
		name = "archive"
	}
	var md strings.Builder
	fmt.Fprintf(&md, "Content from the zip file `%s`:\n\n", name)

	var converted, skipped []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := c.convertMember(ctx, f, call)
		if errors.Is(err, ErrExpansionLimit) {
			return nil, err
		}
		if err != nil || strings.TrimSpace(result.Markdown) == "" {
			skipped = append(skipped, f.Name)
			continue
		}
		converted = append(converted, f.Name)
		fmt.Fprintf(&md, "## File: %s\n\n%s\n\n", f.Name, result.Markdown)
	}

	return &DocumentConverterResult{
		Markdown: md.String(),
		Metadata: map[string]any{"files": converted, "skipped": skipped},
	}, nil
}

func (c *ZipConverter) convertMember(ctx context.Context, f *zip.File, call *Call) (*DocumentConverterResult, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxZipMemberSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxZipMemberSize {
		return nil, fmt.Errorf("member %s exceeds %d bytes", f.Name, maxZipMemberSize)
	}
	if err := call.expand(int64(len(data))); err != nil {
		return nil, err
	}

	ext := strings.ToLower(path.Ext(f.Name))
	r := bytes.NewReader(data)
	return call.convertNested(ctx, r, StreamInfo{
		Extension: ext,
		Filename:  path.Base(f.Name),
		MIMEType:  detectMIMEType(r, ext),
	})
}
