package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/auction-backend/internal/engine"
	"github.com/DoyleJ11/auction-backend/internal/hub"
	"github.com/DoyleJ11/auction-backend/internal/room"
	"github.com/DoyleJ11/auction-backend/pkg/types"
)

const (
	writeTimeout   = 3 * time.Second
	commandTimeout = 5 * time.Second
	outboxSize     = 16
)

var errUnknownType = fmt.Errorf("%w: unknown message type", engine.ErrUnsupportedCommand)

// Handler upgrades GET /ws?code=<room>&user=<id> and joins the caller to the room.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	log = log.Named("ws")

	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		user := r.URL.Query().Get("user")
		if code == "" || user == "" {
			http.Error(w, "missing code or user", http.StatusBadRequest)
			return
		}

		rm, err := h.Get(r.Context(), code)
		if err != nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		clog := log.With(zap.String("room", code), zap.String("user", user), zap.String("client", clientID))

		out := make(chan room.Snapshot, outboxSize)
		if err := rm.Subscribe(r.Context(), clientID, out); err != nil {
			conn.Close(websocket.StatusGoingAway, "room closed")
			return
		}
		defer rm.Unsubscribe(clientID)
		clog.Info("client joined")

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				msg := types.ServerMessage{Type: types.MsgSnapshot, Version: snap.Version, State: &snap.State}
				if err := write(writeCtx, conn, msg); err != nil {
					return
				}
			}
			// The room dropped us (slow client) or shut down.
			conn.Close(websocket.StatusGoingAway, "room closed")
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					clog.Debug("read failed", zap.Error(err))
				}
				clog.Info("client left")
				return
			}

			var reply types.ServerMessage
			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				reply = types.NewError("", fmt.Errorf("%w: bad json", engine.ErrInvalidInput))
			} else {
				reply = handle(r.Context(), rm, user, cm)
			}
			if err := write(r.Context(), conn, reply); err != nil {
				return
			}
		}
	}
}

// handle runs one client message against the room and returns the reply for
// the requester.
func handle(ctx context.Context, rm *room.Room, user string, cm types.ClientMessage) types.ServerMessage {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	if cm.Type == types.MsgGetRoomState {
		v, err := rm.State(ctx)
		if err != nil {
			return types.NewError(cm.RequestID, err)
		}
		return types.ServerMessage{Type: types.MsgRoomState, RequestID: cm.RequestID, Version: v.Version, State: &v.State}
	}

	cmd, err := toEngineCommand(user, cm)
	if err != nil {
		return types.NewError(cm.RequestID, err)
	}
	if err := rm.Do(ctx, cmd); err != nil {
		return types.NewError(cm.RequestID, err)
	}
	return types.ServerMessage{Type: types.MsgAck, RequestID: cm.RequestID, TeamID: cmd.TeamID}
}

func toEngineCommand(user string, m types.ClientMessage) (engine.Command, error) {
	switch m.Type {
	case types.MsgAddTeam:
		owner := m.Owner
		if owner == "" {
			owner = user
		}
		return engine.Command{Type: engine.CmdAddTeam, ActorID: user, TeamID: uuid.NewString(), Name: m.Name, Owner: owner}, nil
	case types.MsgRemoveTeam:
		return engine.Command{Type: engine.CmdRemoveTeam, ActorID: user, TeamID: m.TeamID}, nil
	case types.MsgStartAuction:
		return engine.Command{Type: engine.CmdStartAuction, ActorID: user}, nil
	case types.MsgPlaceBid:
		return engine.Command{Type: engine.CmdPlaceBid, ActorID: user, TeamID: m.TeamID, Amount: m.Amount}, nil
	case types.MsgNextPlayer:
		return engine.Command{Type: engine.CmdAdvanceItem, ActorID: user}, nil
	case types.MsgAddCustomPlayer:
		if m.Item == nil {
			return engine.Command{}, fmt.Errorf("%w: item is required", engine.ErrInvalidInput)
		}
		item := *m.Item
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		return engine.Command{Type: engine.CmdAddItem, ActorID: user, Item: item}, nil
	default:
		return engine.Command{}, fmt.Errorf("%w %q", errUnknownType, m.Type)
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}
