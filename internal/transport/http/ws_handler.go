package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"bonk-blitz/internal/domain"
	"bonk-blitz/internal/game"
)

// WSHandler upgrades player connections and wires them to a per-connection
// game session. Each connection gets its own subscription and its own
// question countdown, mirroring the one-client-one-timer model.
type WSHandler struct {
	store    game.RoundStore
	advancer game.Advancer
	timerCfg game.TimerConfig
	upgrader websocket.Upgrader
}

func NewWSHandler(store game.RoundStore, advancer game.Advancer, timerCfg game.TimerConfig) *WSHandler {
	return &WSHandler{
		store:    store,
		advancer: advancer,
		timerCfg: timerCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	Name          string `json:"name"`
	WalletAddress string `json:"walletAddress"`
}

type answerPayload struct {
	OptionIndex int     `json:"optionIndex"`
	TimeTaken   float64 `json:"timeTaken"`
}

type answerResult struct {
	QuestionIndex int  `json:"questionIndex"`
	Correct       bool `json:"correct"`
	Points        int  `json:"points"`
	TotalScore    int  `json:"totalScore"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and runs the player protocol: the server
// streams "update" frames (round snapshot, current question, countdown,
// leaderboard); the client sends join/answer/leave.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session := game.NewSession(r.Context(), h.store, h.advancer, h.timerCfg)
	defer session.Close()
	defer func() {
		if _, ok := session.Player(); ok {
			_ = session.Leave(r.Context())
		}
	}()

	send := make(chan outboundMessage[any], 16)
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
			case update := <-session.Updates():
				select {
				case send <- outboundMessage[any]{Type: "update", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "join":
			var payload joinPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage("invalid join payload")
				continue
			}
			player, err := session.Join(r.Context(), payload.Name, payload.WalletAddress)
			if err != nil {
				send <- errorMessage(joinErrorText(err))
				continue
			}
			send <- outboundMessage[any]{Type: "joined", Payload: player}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorMessage("invalid answer payload")
				continue
			}
			answer, accepted, err := session.SubmitAnswer(r.Context(), payload.OptionIndex, payload.TimeTaken)
			if err != nil {
				send <- errorMessage(submitErrorText(err))
				continue
			}
			if !accepted {
				// Duplicate submission for this question; ignored.
				continue
			}
			player, _ := session.Player()
			send <- outboundMessage[any]{Type: "answerResult", Payload: answerResult{
				QuestionIndex: answer.QuestionIndex,
				Correct:       answer.Correct,
				Points:        answer.Points,
				TotalScore:    player.Score,
			}}
		case "leave":
			if err := session.Leave(r.Context()); err != nil {
				send <- errorMessage("failed to leave round")
				continue
			}
			send <- outboundMessage[any]{Type: "left", Payload: struct{}{}}
		default:
			send <- errorMessage("unsupported message type")
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func errorMessage(text string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: text}}
}

func joinErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoActiveRound):
		return "no active round to join"
	case errors.Is(err, domain.ErrInvalidName):
		return "invalid player name"
	case errors.Is(err, domain.ErrInvalidWalletAddress):
		return "invalid wallet address"
	default:
		return "failed to join round"
	}
}

func submitErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrPlayerNotFound):
		return "join the round before answering"
	case errors.Is(err, domain.ErrNoActiveRound):
		return "no question to answer"
	default:
		return "failed to submit answer"
	}
}
