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
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	gwerrors "github.com/nicholasgasior/markitdown-server/internal/errors"
)

type requestLogKey struct{}

// requestLog collects fields that handlers add while serving one request.
// It is only touched by the request's own goroutine.
type requestLog struct {
	fields []zap.Field
	err    error
}

func logFields(r *http.Request, fields ...zap.Field) {
	if rl, ok := r.Context().Value(requestLogKey{}).(*requestLog); ok {
		rl.fields = append(rl.fields, fields...)
	}
}

func recordError(r *http.Request, err error) {
	if rl, ok := r.Context().Value(requestLogKey{}).(*requestLog); ok {
		rl.err = err
	}
}

// accessLog writes one line per request, at a level matching its status.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rl := &requestLog{}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), requestLogKey{}, rl)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := append([]zap.Field{
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("route", r.URL.Path),
			zap.Int("status", status),
			zap.Int("response_bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		}, rl.fields...)

		level := zapcore.InfoLevel
		switch {
		case status >= http.StatusInternalServerError:
			level = zapcore.ErrorLevel
		case status >= http.StatusBadRequest:
			level = zapcore.WarnLevel
		}
		if rl.err != nil {
			fields = append(fields, zap.Error(rl.err))
		}
		s.logger.Log(level, "request finished", fields...)
	})
}

// recoverer answers a panicking request with a generic 500 and keeps the
// process alive.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.logger.Error("panic while serving request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
			s.writeError(w, r, gwerrors.NewInternalError("panic", fmt.Errorf("%v", rec)))
		}()
		next.ServeHTTP(w, r)
	})
}
