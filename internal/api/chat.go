package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"iot-device-id/internal/assistant"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type chatGeneric struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

type chatResponse struct {
	Output struct {
		Generic []chatGeneric `json:"generic"`
	} `json:"output"`
}

func newChatResponse(text string) chatResponse {
	var resp chatResponse
	resp.Output.Generic = []chatGeneric{{ResponseType: "text", Text: text}}
	return resp
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Assistant.StartSession())
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	reply, err := s.deps.Assistant.Reply(req.SessionID, req.Message)
	if err != nil {
		if errors.Is(err, assistant.ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, "Message is required")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.ChatMessagesInc()
	}
	writeJSON(w, http.StatusOK, newChatResponse(reply))
}

// handleChatSocket runs one assistant session per connection. The first frame carries
// the session id; every request frame gets exactly one response frame.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	session := s.deps.Assistant.StartSession()
	if err := conn.WriteJSON(session); err != nil {
		return
	}

	for {
		conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("session_id", session.ID).Msg("chat socket closed")
			}
			return
		}

		var out any
		reply, err := s.deps.Assistant.Reply(session.ID, req.Message)
		if err != nil {
			out = map[string]string{"error": "Message is required"}
		} else {
			out = newChatResponse(reply)
			if s.deps.Metrics != nil {
				s.deps.Metrics.ChatMessagesInc()
			}
		}

		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(out); err != nil {
			return
		}
	}
}
