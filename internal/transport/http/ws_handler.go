package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"quizhub/internal/app"
	"quizhub/internal/domain"
)

// hostClientID is the reserved client id that marks the privileged connection
// driving phase transitions.
const hostClientID = "host"

// WSHandler attaches websocket connections to sessions: it routes inbound
// actions into the engine and relays the engine's broadcasts back out. One
// writer goroutine per connection keeps gorilla's single-writer rule intact.
type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundAction struct {
	Action        string `json:"action"`
	Name          string `json:"name"`
	Color         string `json:"color"`
	AnswerID      string `json:"answerId"`
	QuestionIndex *int   `json:"questionIndex"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type welcomeMessage struct {
	Type     string `json:"type"`
	ClientID string `json:"clientId"`
}

// ServeWS handles GET /ws/{code}/{clientID}. A clientID of "host" marks the
// host connection; "new" asks the server to mint an identity, returned in a
// WELCOME message the client is expected to persist for reconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	code := vars["code"]
	clientID := vars["clientID"]

	session, err := h.service.Session(code)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	isHost := clientID == hostClientID
	minted := false
	if clientID == "new" {
		clientID = uuid.NewString()
		minted = true
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Attaching with a known client id is a reconnect: liveness flips back on
	// and this connection gets a full snapshot immediately, without waiting
	// for the next mutation. The token scopes the deferred Detach to this
	// connection; once a reconnect supersedes it, this teardown is a no-op.
	snapshot, token := session.Attach(clientID, isHost)

	updates, cancel := session.Subscribe()
	defer cancel()
	defer session.Detach(clientID, token)

	send := make(chan any, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- update:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	if minted {
		send <- welcomeMessage{Type: "WELCOME", ClientID: clientID}
	}
	send <- app.Event{Type: app.EventStateUpdate, State: &snapshot}

	for {
		var inbound inboundAction
		if err := conn.ReadJSON(&inbound); err != nil {
			// Connection loss is a liveness change, not an error worth
			// broadcasting; Detach handles the roster.
			break
		}
		if err := h.dispatch(session, clientID, isHost, inbound); err != nil {
			// Rejections go to the offending connection only; other clients
			// and the authoritative state are untouched.
			send <- errorMessage{Type: "ERROR", Message: err.Error()}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(session *app.Session, clientID string, isHost bool, msg inboundAction) error {
	switch msg.Action {
	case "START_GAME", "NEXT_QUESTION", "SKIP_TIMER", "RESET":
		if !isHost {
			return domain.ErrNotHost
		}
	}

	switch msg.Action {
	case "START_GAME":
		return session.Start()
	case "NEXT_QUESTION":
		return session.NextQuestion()
	case "SKIP_TIMER":
		return session.SkipTimer()
	case "RESET":
		return session.Reset()
	case "JOIN":
		if isHost {
			return domain.ErrUnknownParticipant
		}
		return session.Join(clientID, msg.Name, msg.Color)
	case "SUBMIT_ANSWER":
		if isHost {
			return domain.ErrUnknownParticipant
		}
		questionIdx := -1
		if msg.QuestionIndex != nil {
			questionIdx = *msg.QuestionIndex
		}
		return session.SubmitAnswer(clientID, questionIdx, msg.AnswerID)
	default:
		return errors.New("unsupported action")
	}
}
