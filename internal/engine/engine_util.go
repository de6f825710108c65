package engine

import "maps"

const (
	MinTeams               = 2
	DefaultBidTimeoutSec   = 30
	DefaultCustomBasePrice = 100000
)

func NewState(roomID, hostID string, cfg Config, catalog []Item) State {
	if cfg.Mode == "" {
		cfg.Mode = ModeStandard
	}
	if cfg.BidTimeoutSec <= 0 {
		cfg.BidTimeoutSec = DefaultBidTimeoutSec
	}

	items := make([]Item, len(catalog))
	for i, it := range catalog {
		items[i] = it.clone()
	}

	return State{
		RoomID:  roomID,
		HostID:  hostID,
		Config:  cfg,
		Status:  StatusWaiting,
		Teams:   []Team{},
		Catalog: items,
		History: []Resolution{},
	}
}

// Clone returns a deep copy sharing no slices or maps with s. Attribute values
// are treated as immutable and copied shallowly.
func (s State) Clone() State {
	out := s

	out.Teams = make([]Team, len(s.Teams))
	for i, t := range s.Teams {
		out.Teams[i] = t
		out.Teams[i].Items = cloneItems(t.Items)
	}

	out.Catalog = cloneItems(s.Catalog)

	if s.Lot != nil {
		lot := *s.Lot
		lot.Item = s.Lot.Item.clone()
		lot.Bids = append([]Bid{}, s.Lot.Bids...)
		out.Lot = &lot
	}

	out.History = make([]Resolution, len(s.History))
	for i, r := range s.History {
		out.History[i] = r
		out.History[i].Item = r.Item.clone()
	}
	return out
}

// Team returns a copy of the team with the given id.
func (s State) Team(id string) (Team, bool) {
	idx := s.teamIndex(id)
	if idx < 0 {
		return Team{}, false
	}
	return s.Teams[idx], true
}

func (s State) Remaining() int {
	return len(s.Catalog) - s.Cursor
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

func (s State) teamIndex(id string) int {
	for i := range s.Teams {
		if s.Teams[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) itemIndex(id string) int {
	for i := range s.Catalog {
		if s.Catalog[i].ID == id {
			return i
		}
	}
	return -1
}

func (it Item) clone() Item {
	out := it
	if it.Attributes != nil {
		out.Attributes = maps.Clone(it.Attributes)
	}
	return out
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.clone()
	}
	return out
}
