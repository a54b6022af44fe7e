package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/corral-dev/corral/pkg/events"
)

// sseEvent is the wire shape of one server-sent event payload.
type sseEvent struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Resource   string `json:"resource"`
	ResourceID string `json:"resourceId"`
	Timestamp  string `json:"timestamp"`
	Message    string `json:"message,omitempty"`
}

// streamEvents relays broker events to the client as server-sent events
// until the client disconnects.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := s.mgr.GetEventBroker().Subscribe()
	defer s.mgr.GetEventBroker().Unsubscribe(sub)

	for {
		select {
		case event, ok := <-sub:
			if !ok {
				return
			}
			if err := writeSSE(w, event); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, event *events.Event) error {
	payload, err := json.Marshal(sseEvent{
		ID:         event.ID,
		Type:       string(event.Type),
		Resource:   event.Resource,
		ResourceID: event.ResourceID,
		Timestamp:  event.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		Message:    event.Message,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
	return err
}
