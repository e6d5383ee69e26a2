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
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// IpynbConverter handles Jupyter notebook files.
type IpynbConverter struct{}

// NewIpynbConverter creates a new IpynbConverter.
func NewIpynbConverter() *IpynbConverter {
	return &IpynbConverter{}
}

func (c *IpynbConverter) Accepts(info StreamInfo, _ *Call) bool {
	return info.Extension == ".ipynb" || strings.HasPrefix(strings.ToLower(info.MIMEType), "application/x-ipynb")
}

type notebook struct {
	Metadata struct {
		KernelSpec *struct {
			Language string `json:"language"`
		} `json:"kernelspec"`
		Title string `json:"title"`
	} `json:"metadata"`
	Cells []struct {
		CellType string           `json:"cell_type"`
		Source   multilineString  `json:"source"`
		Outputs  []notebookOutput `json:"outputs"`
	} `json:"cells"`
}

type notebookOutput struct {
	Text multilineString            `json:"text"`
	Data map[string]multilineString `json:"data"`
}

// multilineString accepts both "source": "a" and "source": ["a", "b"].
type multilineString string

func (s *multilineString) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*s = multilineString(one)
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		// Non-text payloads (image data objects and the like) are ignored.
		*s = ""
		return nil
	}
	*s = multilineString(strings.Join(many, ""))
	return nil
}

func (c *IpynbConverter) Convert(_ context.Context, reader io.ReadSeeker, _ StreamInfo, call *Call) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	var nb notebook
	if err := json.Unmarshal(data, &nb); err != nil {
		return nil, fmt.Errorf("parse notebook JSON: %w", err)
	}

	language := "python"
	if ks := nb.Metadata.KernelSpec; ks != nil && ks.Language != "" {
		language = ks.Language
	}

	title := nb.Metadata.Title
	var sections []string
	for _, cell := range nb.Cells {
		source := string(cell.Source)
		switch cell.CellType {
		case "markdown":
			sections = append(sections, source)
			if title == "" {
				title = firstHeading(source)
			}
		case "code":
			if strings.TrimSpace(source) != "" {
				sections = append(sections, fmt.Sprintf("```%s\n%s\n```", language, source))
			}
			for _, out := range cell.Outputs {
				if text := outputText(out); text != "" {
					sections = append(sections, fmt.Sprintf("```\n%s\n```", text))
				}
			}
		case "raw":
			if strings.TrimSpace(source) != "" {
				sections = append(sections, fmt.Sprintf("```\n%s\n```", source))
			}
		}
	}

	return &DocumentConverterResult{
		Markdown: truncateDataURIs(strings.Join(sections, "\n\n"), call),
		Title:    title,
		Metadata: map[string]any{"language": language, "cells": len(nb.Cells)},
	}, nil
}

func firstHeading(md string) string {
	for _, line := range strings.Split(md, "\n") {
		if h, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return h
		}
	}
	return ""
}

// outputText prefers stream text and falls back to the text/plain bundle.
func outputText(out notebookOutput) string {
	if s := strings.TrimRight(string(out.Text), "\n"); s != "" {
		return s
	}
	return strings.TrimRight(string(out.Data["text/plain"]), "\n")
}
