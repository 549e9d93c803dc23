package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/mattjoyce/tooly/internal/events"
)

const keepAliveInterval = 15 * time.Second

// handleEvents streams hub events as server-sent events. A Last-Event-ID
// header resumes after that event; ?types= limits the stream to a
// comma-separated list of event types.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	resume := lastEventID(r)
	backlog, live, cancel := s.events.Follow(resume, events.ParseFilter(r.URL.Query().Get("types")))
	defer cancel()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	for _, ev := range backlog {
		if writeEvent(w, ev) != nil {
			return
		}
	}
	flusher.Flush()

	ping := time.NewTicker(keepAliveInterval)
	defer ping.Stop()

	for {
		var err error
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-live:
			if !open {
				return
			}
			err = writeEvent(w, ev)
		case <-ping.C:
			_, err = io.WriteString(w, ": ping\n\n")
		}
		if err != nil {
			s.logger.Debug("event stream closed", "error", err)
			return
		}
		flusher.Flush()
	}
}

// lastEventID reads the resume point. Without a valid header the whole
// backlog is replayed.
func lastEventID(r *http.Request) int64 {
	n, err := strconv.ParseInt(r.Header.Get("Last-Event-ID"), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// writeEvent frames one event. Data is single-line JSON, so one data line
// suffices.
func writeEvent(w io.Writer, ev events.Event) error {
	_, err := fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.ID, ev.Type, ev.Data)
	return err
}
