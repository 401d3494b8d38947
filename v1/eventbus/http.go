package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
)

// SSEHandler streams lock events for a version over Server-Sent Events.
// The version is taken from the "version" query parameter. Admin UIs use
// this to keep lock indicators current without polling.
func SSEHandler(bus Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		versionID := r.URL.Query().Get("version")
		if versionID == "" {
			http.Error(w, "missing version", http.StatusBadRequest)
			return
		}
		ctx, cancel := context.WithCancel(r.Context())
		ch, err := bus.Subscribe(ctx, versionID)
		if err != nil {
			cancel()
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer func() {
			cancel()
			_ = bus.Unsubscribe(context.Background(), versionID, ch)
		}()
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "stream unsupported", http.StatusInternalServerError)
			return
		}
		flusher.Flush()
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				data, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
					return
				}
				flusher.Flush()
			case <-ctx.Done():
				return
			}
		}
	}
}

var upgrader = websocket.Upgrader{}

// WebSocketHandler streams lock events for a version over WebSocket.
// The version is taken from the "version" query parameter.
func WebSocketHandler(bus Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		versionID := r.URL.Query().Get("version")
		if versionID == "" {
			http.Error(w, "missing version", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		ctx, cancel := context.WithCancel(r.Context())
		ch, err := bus.Subscribe(ctx, versionID)
		if err != nil {
			cancel()
			return
		}
		defer func() {
			cancel()
			_ = bus.Unsubscribe(context.Background(), versionID, ch)
		}()
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}
}
