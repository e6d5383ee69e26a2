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
	"net/http"
	"strings"

	"github.com/nicholasgasior/markitdown-server/internal/docintel"
)

// docIntelTypes are the inputs the layout model accepts, by extension.
var docIntelTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".html": "text/html",
	".htm":  "text/html",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".heif": "image/heif",
}

// DocIntelConverter sends documents to Azure AI Document Intelligence. It
// only accepts input when the call names an endpoint and key.
type DocIntelConverter struct {
	httpClient *http.Client
}

// NewDocIntelConverter creates a DocIntelConverter using httpClient.
func NewDocIntelConverter(httpClient *http.Client) *DocIntelConverter {
	return &DocIntelConverter{httpClient: httpClient}
}

func (c *DocIntelConverter) Accepts(info StreamInfo, call *Call) bool {
	if call == nil || call.DocIntel == nil || call.DocIntel.Endpoint == "" || call.DocIntel.Key == "" {
		return false
	}
	return docIntelContentType(info) != ""
}

func docIntelContentType(info StreamInfo) string {
	if ct, ok := docIntelTypes[info.Extension]; ok {
		return ct
	}
	mime := strings.ToLower(info.MIMEType)
	for _, ct := range docIntelTypes {
		if strings.HasPrefix(mime, ct) {
			return ct
		}
	}
	return ""
}

func (c *DocIntelConverter) Convert(ctx context.Context, reader io.ReadSeeker, info StreamInfo, call *Call) (*DocumentConverterResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	client := docintel.New(call.DocIntel.Endpoint, call.DocIntel.Key, c.httpClient)
	result, err := client.Analyze(ctx, data, docIntelContentType(info))
	if err != nil {
		return nil, err
	}

	return &DocumentConverterResult{
		Markdown: truncateDataURIs(result.Content, call),
		Metadata: map[string]any{
			"docintel_model": result.ModelID,
			"pages":          len(result.Pages),
		},
	}, nil
}
