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
	"regexp"
	"strings"
	"unicode"
)

var (
	reTrailingWhitespace = regexp.MustCompile(`[ \t]+\n`)
	reMultipleNewlines   = regexp.MustCompile(`\n{3,}`)
	reCRLF               = regexp.MustCompile(`\r\n?`)
	reDataURI            = regexp.MustCompile(`(data:[a-zA-Z0-9/+.-]+;base64,)[A-Za-z0-9+/=]{64,}`)
)

// normalizeSteps run in order over every converter result.
var normalizeSteps = []func(string) string{
	func(s string) string { return strings.ToValidUTF8(s, "") },
	func(s string) string { return reCRLF.ReplaceAllString(s, "\n") },
	stripControl,
	func(s string) string { return reTrailingWhitespace.ReplaceAllString(s+"\n", "\n") },
	func(s string) string { return reMultipleNewlines.ReplaceAllString(s, "\n\n") },
	strings.TrimSpace,
}

// normalizeOutput gives every result LF line endings, no control characters
// other than \n and \t, no trailing blanks and at most one empty line in a row.
func normalizeOutput(s string) string {
	for _, step := range normalizeSteps {
		s = step(s)
	}
	return s
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r != '\n' && r != '\t' && unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// truncateDataURIs shortens large base64 data URIs to data:mime/type;base64...
// unless the call keeps them.
func truncateDataURIs(md string, call *Call) string {
	if call != nil && call.KeepDataURIs {
		return md
	}
	return reDataURI.ReplaceAllString(md, "${1}...")
}
