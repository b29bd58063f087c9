package server

import (
	"errors"
	"net/http"
)

// streamWriter writes a chunked plain-text response. Headers go out with
// the first write so that a failure before it can still become a JSON
// error. Every write is flushed to the client.
type streamWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
	bytes   int
}

func newStreamWriter(w http.ResponseWriter) *streamWriter {
	return &streamWriter{w: w, rc: http.NewResponseController(w)}
}

func (sw *streamWriter) Write(p []byte) (int, error) {
	if !sw.started {
		h := sw.w.Header()
		h.Set("Content-Type", "text/plain; charset=utf-8")
		h.Set("Transfer-Encoding", "chunked")
		h.Set("Cache-Control", "no-cache")
		h.Set("X-Content-Type-Options", "nosniff")
		sw.w.WriteHeader(http.StatusOK)
		sw.started = true
	}
	n, err := sw.w.Write(p)
	sw.bytes += n
	if err != nil {
		return n, err
	}
	if ferr := sw.rc.Flush(); ferr != nil && !errors.Is(ferr, http.ErrNotSupported) {
		return n, ferr
	}
	return n, nil
}

// Started reports whether the response headers were sent.
func (sw *streamWriter) Started() bool {
	return sw.started
}

// Bytes returns the number of body bytes written.
func (sw *streamWriter) Bytes() int {
	return sw.bytes
}
