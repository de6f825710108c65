package types

import (
	"github.com/DoyleJ11/auction-backend/internal/engine"
	"github.com/DoyleJ11/auction-backend/internal/ledger"
)

// RoomSummary is the HTTP view of a room:
//   code: string
//   version: number
//   clients: number
//   state: engine.State
//   squads: { [teamId]: ledger.Report } // only once the auction has started
type RoomSummary struct {
	Code    string                   `json:"code"`
	Version int                      `json:"version"`
	Clients int                      `json:"clients"`
	State   engine.State             `json:"state"`
	Squads  map[string]ledger.Report `json:"squads,omitempty"`
}

// NewRoomSummary checks every team's squad against rules.
func NewRoomSummary(code string, version, clients int, s engine.State, rules ledger.Rules) RoomSummary {
	out := RoomSummary{Code: code, Version: version, Clients: clients, State: s}
	if s.Status == engine.StatusWaiting {
		return out
	}
	out.Squads = make(map[string]ledger.Report, len(s.Teams))
	for _, t := range s.Teams {
		out.Squads[t.ID] = ledger.Validate(t.Items, rules)
	}
	return out
}
