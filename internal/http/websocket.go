package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"patientsim/internal/bot"
	"patientsim/internal/core"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(*http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type wsReplies struct {
	Type    string       `json:"type"`
	Replies []core.Reply `json:"replies"`
}

type wsError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// handleWebSocket carries chat updates over a websocket.  Every inbound
// frame is a JSON update and is answered by one frame: either the replies
// (possibly none) or an error.  Updates of one connection are handled in
// order; a malformed frame is answered with an error and the connection
// stays open.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already answered the client.
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()
	ctx := r.Context()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logrus.WithError(err).Debug("websocket read ended")
			}
			return
		}

		var out any
		var u bot.Update
		if err := json.Unmarshal(data, &u); err != nil {
			out = wsError{Type: "error", Error: "invalid update payload"}
		} else if msg := validateUpdate(u); msg != "" {
			out = wsError{Type: "error", Error: msg}
		} else if replies, err := s.Updates.Handle(ctx, u); err != nil {
			out = wsError{Type: "error", Error: "update failed"}
		} else {
			if replies == nil {
				replies = []core.Reply{}
			}
			out = wsReplies{Type: "replies", Replies: replies}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(out); err != nil {
			logrus.WithError(err).Warn("websocket write failed")
			return
		}
	}
}
