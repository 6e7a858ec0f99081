package streaming

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Writer wraps an http.ResponseWriter to emit one council Event per SSE
// frame, setting the SSE headers once and flushing after every frame.
type Writer struct {
	w http.ResponseWriter
	f http.Flusher
}

// NewWriter prepares w for SSE and returns a Writer, or an error if the
// underlying ResponseWriter cannot be flushed incrementally.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported by response writer")
	}
	w.WriteHeader(http.StatusOK)
	return &Writer{w: w, f: flusher}, nil
}

// Send writes one event frame and flushes it to the client immediately.
func (s *Writer) Send(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	s.f.Flush()
	return nil
}
