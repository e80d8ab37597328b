package middleware

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	requestIDHeader    = "X-Request-ID"
	maxRequestIDLength = 64
)

type requestInfoKey struct{}

// requestInfo is filled in by inner middleware so the access log can name the
// caller once the request completes.
type requestInfo struct {
	userID int64
}

func noteUser(r *http.Request, userID int64) {
	if info, ok := r.Context().Value(requestInfoKey{}).(*requestInfo); ok {
		info.userID = userID
	}
}

// maxCapturedBody bounds how much of an error response is kept for the log.
const maxCapturedBody = 4 << 10

type envelopeError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		started := time.Now()
		rec := &captureWriter{ResponseWriter: w, status: http.StatusOK}
		info := &requestInfo{}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info)))

		attrs := []slog.Attr{
			slog.String("request_id", requestID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Int64("duration_ms", time.Since(started).Milliseconds()),
			slog.String("client_ip", ClientIP(r)),
		}
		if info.userID > 0 {
			attrs = append(attrs, slog.Int64("user_id", info.userID))
		}
		if rec.status >= http.StatusBadRequest {
			if r.URL.RawQuery != "" {
				attrs = append(attrs, slog.String("query", r.URL.RawQuery))
			}
			attrs = append(attrs, envelopeAttrs(rec.body.Bytes())...)
		}

		slog.LogAttrs(r.Context(), levelForStatus(rec.status), "request", attrs...)
	})
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// envelopeAttrs pulls the error code and message out of a JSON error envelope.
func envelopeAttrs(body []byte) []slog.Attr {
	if len(body) == 0 {
		return nil
	}
	var parsed envelopeError
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Error == nil {
		return nil
	}
	attrs := []slog.Attr{
		slog.String("error_code", parsed.Error.Code),
		slog.String("error_message", parsed.Error.Message),
	}
	if parsed.Error.Details != "" {
		attrs = append(attrs, slog.String("error_details", parsed.Error.Details))
	}
	return attrs
}

// captureWriter records the status and keeps the start of error bodies.
type captureWriter struct {
	http.ResponseWriter
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func (cw *captureWriter) WriteHeader(statusCode int) {
	if cw.wroteHeader {
		return
	}
	cw.status = statusCode
	cw.wroteHeader = true
	cw.ResponseWriter.WriteHeader(statusCode)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.status >= http.StatusBadRequest {
		if room := maxCapturedBody - cw.body.Len(); room > 0 {
			cw.body.Write(b[:min(len(b), room)])
		}
	}
	return cw.ResponseWriter.Write(b)
}

func (cw *captureWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := cw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	cw.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (cw *captureWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}

// validRequestID accepts caller-supplied ids that are safe to echo and log.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		default:
			return false
		}
	}
	return true
}
