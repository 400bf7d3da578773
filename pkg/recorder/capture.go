package recorder

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
)

// Transport returns an http.RoundTripper that records every exchange it
// carries. A nil base uses http.DefaultTransport. Recording failures are
// logged and never fail the request.
func (r *Recorder) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &transport{base: base, rec: r}
}

type transport struct {
	base http.RoundTripper
	rec  *Recorder
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	var reqBody []byte
	if req.Body != nil && req.Body != http.NoBody {
		data, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, err
		}
		reqBody = data

		// RoundTrippers must not modify the caller's request
		clone := req.Clone(req.Context())
		clone.Body = io.NopCloser(bytes.NewReader(data))
		clone.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
		req = clone
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	var respBody []byte
	if resp.Body != nil {
		data, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, err
		}
		respBody = data
		resp.Body = io.NopCloser(bytes.NewReader(data))
	}

	t.rec.recordHTTP(req, reqBody, resp.StatusCode, resp.Header.Get("Content-Type"), respBody)
	return resp, nil
}

// Middleware wraps a handler and records every exchange it serves.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var reqBody []byte
		if req.Body != nil && req.Body != http.NoBody {
			data, err := io.ReadAll(req.Body)
			_ = req.Body.Close()
			if err != nil {
				http.Error(w, "reading request body", http.StatusBadRequest)
				return
			}
			reqBody = data
			req.Body = io.NopCloser(bytes.NewReader(data))
		}

		cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(cw, req)

		r.recordHTTP(req, reqBody, cw.status, cw.Header().Get("Content-Type"), cw.body.Bytes())
	})
}

func (r *Recorder) recordHTTP(req *http.Request, reqBody []byte, status int, respContentType string, respBody []byte) {
	ex := Exchange{
		Method:              req.Method,
		URL:                 req.URL.RequestURI(),
		Status:              status,
		RequestContentType:  req.Header.Get("Content-Type"),
		RequestBody:         reqBody,
		ResponseContentType: respContentType,
		ResponseBody:        respBody,
	}
	if ex.Method == "" {
		ex.Method = http.MethodGet
	}
	if _, err := r.RecordExchange(req.Context(), ex); err != nil {
		r.cfg.logger.WarnContext(req.Context(), "exchange not recorded",
			slog.String("method", ex.Method),
			slog.String("url", ex.URL),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
	}
}

// captureWriter tees the response body and remembers the status code.
type captureWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (w *captureWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	w.body.Write(p)
	return w.ResponseWriter.Write(p)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *captureWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
