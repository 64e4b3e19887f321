package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

// handleStatusLive upgrades the connection to a WebSocket and streams every
// Status update for the prompt id, starting with the current snapshot so a
// late joiner is synchronized immediately. It closes cleanly when the peer
// disconnects and drops the subscription on any write failure.
func (s *Server) handleStatusLive(w http.ResponseWriter, r *http.Request) {
	promptID := r.PathValue("promptId")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Error().Err(err).Str("promptId", promptID).Msg("httpapi: websocket accept failed")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	updates, unsubscribe := s.Status.Subscribe(promptID)
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case snapshot, ok := <-updates:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			data, err := json.Marshal(snapshot)
			if err != nil {
				log.Error().Err(err).Str("promptId", promptID).Msg("httpapi: marshal status for live stream failed")
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				// Write failure means the peer is gone; drop the
				// subscription and stop rather than retrying.
				return
			}
		}
	}
}
