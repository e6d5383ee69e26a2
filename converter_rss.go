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

	"github.com/mmcdole/gofeed"
)

// RSSConverter handles RSS and Atom feeds.
type RSSConverter struct{}

// NewRSSConverter creates a new RSSConverter.
func NewRSSConverter() *RSSConverter {
	return &RSSConverter{}
}

func (c *RSSConverter) Accepts(info StreamInfo, _ *Call) bool {
	switch info.Extension {
	case ".rss", ".atom", ".xml":
		return true
	}
	mime := strings.ToLower(info.MIMEType)
	for _, prefix := range []string{"application/rss", "application/atom", "text/xml", "application/xml"} {
		if strings.HasPrefix(mime, prefix) {
			return true
		}
	}
	return false
}

func (c *RSSConverter) Convert(_ context.Context, reader io.ReadSeeker, _ StreamInfo, call *Call) (*DocumentConverterResult, error) {
	feed, err := gofeed.NewParser().Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var b strings.Builder
	if feed.Title != "" {
		fmt.Fprintf(&b, "# %s\n", feed.Title)
	}
	if feed.Description != "" {
		fmt.Fprintf(&b, "%s\n", feed.Description)
	}
	b.WriteString("\n")

	for _, item := range feed.Items {
		if item.Title != "" {
			fmt.Fprintf(&b, "## %s\n", item.Title)
		}
		switch {
		case item.Published != "":
			fmt.Fprintf(&b, "Published: %s\n\n", item.Published)
		case item.Updated != "":
			fmt.Fprintf(&b, "Updated: %s\n\n", item.Updated)
		}

		content := item.Content
		if content == "" {
			content = item.Description
		}
		if strings.Contains(content, "<") && strings.Contains(content, ">") {
			if md, err := convertHTMLToMarkdown(content); err == nil {
				content = md
			}
		}
		if content != "" {
			b.WriteString(truncateDataURIs(content, call))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	return &DocumentConverterResult{
		Markdown: b.String(),
		Title:    feed.Title,
		Metadata: map[string]any{"feed_type": feed.FeedType, "items": len(feed.Items)},
	}, nil
}
