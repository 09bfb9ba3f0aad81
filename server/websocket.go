package server

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xhad/wellai/pkg/session"
)

// Frame types.
const (
	MessageQuestion = "question"
	MessageClear    = "clear"
	MessageStatus   = "status"
	MessageResponse = "response"
	MessageError    = "error"
)

const wsReadLimit = 64 << 10

// Message is one websocket frame in either direction.
type Message struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Data    any    `json:"data,omitempty"`
}

// handleWebSocket runs the chatbot over a websocket. Frames from one
// connection are handled in order and share the visitor's chat history.
func (s *Server) handleWebSocket(c *gin.Context) {
	sess := sessionFrom(c)

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("error reading message", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendMessage(conn, MessageError, "invalid message")
			continue
		}

		s.handleMessage(c, conn, sess, msg)
	}
}

func (s *Server) handleMessage(c *gin.Context, conn *websocket.Conn, sess *session.Session, msg Message) {
	sess.Lock()
	defer sess.Unlock()

	switch msg.Type {
	case MessageQuestion:
		question := strings.TrimSpace(msg.Content)
		if question == "" {
			s.sendMessage(conn, MessageError, "empty question")
			return
		}

		s.sendMessage(conn, MessageStatus, "Searching the medical library...")
		turn, err := s.respond(c, sess, question)
		if err != nil {
			s.sendMessage(conn, MessageError, "Could not search the medical library: "+err.Error())
			return
		}
		s.send(conn, Message{Type: MessageResponse, Content: turn.Answer, Data: turn})

	case MessageClear:
		sess.ClearChat()
		s.sendMessage(conn, MessageStatus, "History cleared!")

	default:
		s.sendMessage(conn, MessageError, "unknown message type: "+msg.Type)
	}
}

func (s *Server) sendMessage(conn *websocket.Conn, msgType string, content string) {
	s.send(conn, Message{Type: msgType, Content: content})
}

func (s *Server) send(conn *websocket.Conn, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Warn("error sending message", zap.Error(err))
	}
}
