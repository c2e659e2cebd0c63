package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mattjoyce/palisade/internal/events"
)

// keepAliveInterval paces SSE comment lines so idle connections are not
// reaped by intermediaries.
const keepAliveInterval = 15 * time.Second

// handleEvents streams delivery lifecycle events over SSE. Buffered events
// newer than the client's Last-Event-ID are replayed first, then the stream
// follows the hub live until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	stream, ok := newSSEStream(w)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	stream.begin()

	lastID := parseLastEventID(r.Header.Get("Last-Event-ID"))
	for _, ev := range s.events.SnapshotSince(lastID) {
		if stream.send(ev) != nil {
			return
		}
	}
	stream.flush()

	ch, cancel := s.events.Subscribe()
	defer cancel()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-ch:
			if !open {
				return
			}
			if stream.send(ev) != nil {
				return
			}
			stream.flush()
		case <-keepAlive.C:
			if stream.comment("keep-alive") != nil {
				return
			}
			stream.flush()
		}
	}
}

// parseLastEventID interprets the SSE resume header. Anything that is not a
// positive integer means "from the beginning".
func parseLastEventID(v string) int64 {
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// sseStream frames hub events for one text/event-stream response.
type sseStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEStream(w http.ResponseWriter) (*sseStream, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	return &sseStream{w: w, flusher: flusher}, true
}

func (s *sseStream) begin() {
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	s.w.WriteHeader(http.StatusOK)
}

// send writes one event. The payload is single-line JSON, so a single data
// field is enough.
func (s *sseStream) send(ev events.Event) error {
	if _, err := fmt.Fprintf(s.w, "id: %d\n", ev.ID); err != nil {
		return err
	}
	if ev.Type != "" {
		if _, err := fmt.Fprintf(s.w, "event: %s\n", ev.Type); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(s.w, "data: %s\n\n", ev.Data)
	return err
}

// comment writes an SSE comment line, which clients ignore.
func (s *sseStream) comment(text string) error {
	_, err := fmt.Fprintf(s.w, ": %s\n\n", text)
	return err
}

func (s *sseStream) flush() {
	s.flusher.Flush()
}
