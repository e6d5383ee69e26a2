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

package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	gwerrors "github.com/nicholasgasior/markitdown-server/internal/errors"
)

const (
	msgNoFile = "No file provided"

	// maxFieldBytes bounds the non-file form fields.
	maxFieldBytes = 1 << 20

	// Buffers larger than this are dropped instead of pooled.
	maxPooledBuffer = 8 << 20
)

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// upload is one parsed multipart request. Release must be called once the
// content is no longer used.
type upload struct {
	filename  string
	extension string
	config    string
	size      int
	content   *bytes.Buffer
}

func (u *upload) Bytes() []byte {
	if u.content == nil {
		return nil
	}
	return u.content.Bytes()
}

func (u *upload) Release() {
	if u.content == nil {
		return
	}
	if u.content.Cap() <= maxPooledBuffer {
		u.content.Reset()
		bufferPool.Put(u.content)
	}
	u.content = nil
}

// readUpload streams the multipart body of r. The file part is read into a
// pooled buffer holding at most limit+1 bytes; anything larger is rejected.
// A file part without a filename is rejected before its content is read.
// Once a filename is known it is added to the request log, whatever the
// outcome.
func readUpload(r *http.Request, limit int64) (*upload, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, gwerrors.NewBadRequestError(msgNoFile, err)
	}

	u := &upload{}
	defer func() {
		if u.filename == "" {
			return
		}
		logFields(r,
			zap.String("filename", u.filename),
			zap.Int("size_bytes", u.size),
			zap.Float64("size_mb", float64(u.size)/(1<<20)),
			zap.String("extension", resolveExtension(u.extension, u.filename)),
		)
	}()
	seenFile := false
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			u.Release()
			return nil, gwerrors.NewBadRequestError("Malformed multipart body", err)
		}

		switch part.FormName() {
		case "file":
			if seenFile {
				break
			}
			seenFile = true
			if err := u.readFile(part, limit); err != nil {
				part.Close()
				u.Release()
				return nil, err
			}
		case "extension":
			u.extension, err = readField(part)
		case "config":
			u.config, err = readField(part)
		}
		part.Close()
		if err != nil {
			u.Release()
			return nil, err
		}
	}

	if !seenFile {
		return nil, gwerrors.NewBadRequestError(msgNoFile, nil)
	}
	return u, nil
}

func (u *upload) readFile(part *multipart.Part, limit int64) error {
	u.filename = part.FileName()
	if u.filename == "" {
		return gwerrors.NewBadRequestError(msgNoFile, nil)
	}

	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	u.content = buf
	_, err := io.Copy(buf, io.LimitReader(part, limit+1))
	u.size = buf.Len()
	if err != nil {
		return gwerrors.NewBadRequestError("Failed to read uploaded file", err)
	}
	if int64(u.size) > limit {
		return gwerrors.NewPayloadTooLargeError(
			fmt.Sprintf("File too large. Maximum size is %.1fMB.", float64(limit)/(1<<20)))
	}
	return nil
}

func readField(part *multipart.Part) (string, error) {
	data, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return "", gwerrors.NewBadRequestError("Malformed multipart body", err)
	}
	if len(data) > maxFieldBytes {
		return "", gwerrors.NewBadRequestError(
			fmt.Sprintf("Form field %q is too large", part.FormName()), nil)
	}
	return string(data), nil
}

// resolveExtension picks the format hint: an explicit extension wins,
// otherwise the lower-cased filename suffix after the last dot.
func resolveExtension(explicit, filename string) string {
	if e := strings.TrimSpace(explicit); e != "" {
		return strings.ToLower(strings.TrimPrefix(e, "."))
	}
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}
