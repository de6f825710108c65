package types

import "github.com/DoyleJ11/auction-backend/internal/engine"

// Client -> Server
const (
	MsgAddTeam         = "add-team"          // name, owner
	MsgRemoveTeam      = "remove-team"       // team_id
	MsgStartAuction    = "start-auction"     // host only
	MsgPlaceBid        = "place-bid"         // team_id, amount
	MsgNextPlayer      = "next-player"       // host only; skips a live item
	MsgAddCustomPlayer = "add-custom-player" // item
	MsgGetRoomState    = "get-room-state"
)

// Server -> Client
const (
	MsgSnapshot  = "snapshot"   // broadcast after every accepted command
	MsgRoomState = "room-state" // reply to get-room-state
	MsgAck       = "ack"
	MsgError     = "error" // only ever sent to the requester
)

type ClientMessage struct {
	Type      string       `json:"type"`
	RequestID string       `json:"request_id,omitempty"`
	TeamID    string       `json:"team_id,omitempty"`
	Name      string       `json:"name,omitempty"`
	Owner     string       `json:"owner,omitempty"`
	Amount    int64        `json:"amount,omitempty"`
	Item      *engine.Item `json:"item,omitempty"`
}

type ServerMessage struct {
	Type      string        `json:"type"`
	RequestID string        `json:"request_id,omitempty"`
	Version   int           `json:"version,omitempty"`
	TeamID    string        `json:"team_id,omitempty"`
	State     *engine.State `json:"state,omitempty"`
	Error     *ErrorBody    `json:"error,omitempty"`
}

type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func NewError(requestID string, err error) ServerMessage {
	return ServerMessage{
		Type:      MsgError,
		RequestID: requestID,
		Error:     &ErrorBody{Kind: engine.KindOf(err), Message: engine.Message(err)},
	}
}
