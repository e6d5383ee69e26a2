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
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultCaptionPrompt is sent to the model when the call has no prompt.
const DefaultCaptionPrompt = "Write a detailed caption for this image."

// ImageConverter reports image dimensions and, when the call carries an LLM
// client, a model-written description.
type ImageConverter struct{}

// NewImageConverter creates a new ImageConverter.
func NewImageConverter() *ImageConverter {
	return &ImageConverter{}
}

func (c *ImageConverter) Accepts(info StreamInfo, _ *Call) bool {
	switch info.Extension {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return true
	}
	return strings.HasPrefix(strings.ToLower(info.MIMEType), "image/")
}

func (c *ImageConverter) Convert(ctx context.Context, reader io.ReadSeeker, info StreamInfo, call *Call) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}

	var md strings.Builder
	fmt.Fprintf(&md, "ImageSize: %dx%d\n", cfg.Width, cfg.Height)
	meta := map[string]any{
		"format": format,
		"width":  cfg.Width,
		"height": cfg.Height,
	}

	if llm := call.LLM; llm != nil && llm.Client != nil {
		prompt := llm.Prompt
		if strings.TrimSpace(prompt) == "" {
			prompt = DefaultCaptionPrompt
		}
		mimeType := info.MIMEType
		if !strings.HasPrefix(mimeType, "image/") {
			mimeType = "image/" + format
		}
		caption, err := llm.Client.Describe(ctx, llm.Model, prompt, data, mimeType)
		if err != nil {
			return nil, fmt.Errorf("describe image: %w", err)
		}
		fmt.Fprintf(&md, "\n# Description:\n%s\n", strings.TrimSpace(caption))
		meta["llm_model"] = llm.Model
	}

	return &DocumentConverterResult{
		Markdown: md.String(),
		Metadata: meta,
	}, nil
}
