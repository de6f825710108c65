package engine

import (
	"fmt"
	"time"
)

type Mode string

const (
	ModeStandard Mode = "standard"
	ModeFriendly Mode = "friendly"
)

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

type Outcome string

const (
	OutcomeSold   Outcome = "sold"
	OutcomeUnsold Outcome = "unsold"
)

// Config is fixed at room creation.
type Config struct {
	Mode          Mode  `json:"mode"`
	Budget        int64 `json:"budget"`
	BidTimeoutSec int   `json:"bid_timeout_sec"`
	MinIncrement  int64 `json:"min_increment,omitempty"`
}

// Item is one biddable unit. Money is in the smallest currency unit.
type Item struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Role       string         `json:"role"`
	BasePrice  int64          `json:"base_price"`
	Attributes map[string]any `json:"attributes,omitempty"`
	SoldPrice  int64          `json:"sold_price,omitempty"`
}

type Team struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Owner           string `json:"owner"`
	Budget          int64  `json:"budget"`
	RemainingBudget int64  `json:"remaining_budget"`
	Items           []Item `json:"items"`
}

type Bid struct {
	TeamID string    `json:"team_id"`
	Amount int64     `json:"amount"`
	At     time.Time `json:"at"`
}

// Lot is the live auction of the current item. Seq identifies it for timer firings.
type Lot struct {
	Seq          int    `json:"seq"`
	Item         Item   `json:"item"`
	CurrentBid   int64  `json:"current_bid"`
	LeaderID     string `json:"leader_id,omitempty"`
	RemainingSec int    `json:"remaining_sec"`
	Bids         []Bid  `json:"bids"`
}

type Resolution struct {
	Seq      int     `json:"seq"`
	Item     Item    `json:"item"`
	Status   Outcome `json:"status"`
	WinnerID string  `json:"winner_id,omitempty"`
	Price    int64   `json:"price,omitempty"`
	Skipped  bool    `json:"skipped,omitempty"`
}

type State struct {
	RoomID  string       `json:"room_id"`
	HostID  string       `json:"host_id"`
	Config  Config       `json:"config"`
	Status  Status       `json:"status"`
	Teams   []Team       `json:"teams"`
	Catalog []Item       `json:"catalog"`
	Cursor  int          `json:"cursor"`
	LotSeq  int          `json:"lot_seq"`
	Lot     *Lot         `json:"lot,omitempty"`
	History []Resolution `json:"history"`
}

type CommandType string

const (
	CmdAddTeam      CommandType = "AddTeam"
	CmdRemoveTeam   CommandType = "RemoveTeam"
	CmdStartAuction CommandType = "StartAuction"
	CmdPlaceBid     CommandType = "PlaceBid"
	CmdAdvanceItem  CommandType = "AdvanceItem"
	CmdAddItem      CommandType = "AddItem"
	CmdTick         CommandType = "Tick"
	CmdSettle       CommandType = "Settle"
)

/*
	CmdStartAuction -> EvtAuctionStarted -> EvtLotOpened
	CmdPlaceBid     -> EvtBidPlaced (countdown resets)
	CmdTick         -> EvtTimerTicked [-> EvtLotSold | EvtLotUnsold]
	CmdSettle       -> EvtLotOpened | EvtAuctionCompleted
	CmdAdvanceItem  -> [EvtLotUnsold (skipped)] -> EvtLotOpened | EvtAuctionCompleted

	Tick and Settle come from the room's timers, never from clients.
*/

// Command ids and timestamps are filled in by the caller so Apply stays deterministic.
type Command struct {
	Type    CommandType
	ActorID string
	TeamID  string
	Name    string
	Owner   string
	Amount  int64
	Item    Item
	Lot     int
	At      time.Time
}

type EventType string

const (
	EvtTeamAdded        EventType = "TeamAdded"
	EvtTeamRemoved      EventType = "TeamRemoved"
	EvtItemAdded        EventType = "ItemAdded"
	EvtAuctionStarted   EventType = "AuctionStarted"
	EvtLotOpened        EventType = "LotOpened"
	EvtBidPlaced        EventType = "BidPlaced"
	EvtTimerTicked      EventType = "TimerTicked"
	EvtLotSold          EventType = "LotSold"
	EvtLotUnsold        EventType = "LotUnsold"
	EvtAuctionCompleted EventType = "AuctionCompleted"
)

type Event struct {
	Type    EventType
	Lot     int
	TeamID  string
	Amount  int64
	Item    Item
	Skipped bool
}

// Apply validates cmd against s and returns the resulting state. On error the
// original state is returned untouched.
func Apply(s State, cmd Command) ([]Event, State, error) {
	next := s.Clone()

	switch cmd.Type {
	case CmdAddTeam:
		if s.Status != StatusWaiting {
			return nil, s, fmt.Errorf("%w: teams can only join before the auction starts", ErrInvalidState)
		}
		if cmd.TeamID == "" || cmd.Name == "" {
			return nil, s, fmt.Errorf("%w: team id and name are required", ErrInvalidInput)
		}
		if s.teamIndex(cmd.TeamID) >= 0 {
			return nil, s, fmt.Errorf("%w: team %s already exists", ErrInvalidInput, cmd.TeamID)
		}

		next.Teams = append(next.Teams, Team{
			ID:              cmd.TeamID,
			Name:            cmd.Name,
			Owner:           cmd.Owner,
			Budget:          s.Config.Budget,
			RemainingBudget: s.Config.Budget,
			Items:           []Item{},
		})
		return []Event{{Type: EvtTeamAdded, TeamID: cmd.TeamID}}, next, nil

	case CmdRemoveTeam:
		if s.Status != StatusWaiting {
			return nil, s, fmt.Errorf("%w: teams cannot leave once the auction has started", ErrInvalidState)
		}
		idx := s.teamIndex(cmd.TeamID)
		if idx < 0 {
			return nil, s, fmt.Errorf("%w: %s", ErrUnknownParticipant, cmd.TeamID)
		}

		next.Teams = append(next.Teams[:idx], next.Teams[idx+1:]...)
		return []Event{{Type: EvtTeamRemoved, TeamID: cmd.TeamID}}, next, nil

	case CmdAddItem:
		if s.Status == StatusCompleted {
			return nil, s, fmt.Errorf("%w: auction already completed", ErrInvalidState)
		}
		if cmd.Item.ID == "" || cmd.Item.Name == "" {
			return nil, s, fmt.Errorf("%w: item id and name are required", ErrInvalidInput)
		}
		if s.itemIndex(cmd.Item.ID) >= 0 {
			return nil, s, fmt.Errorf("%w: item %s already in catalog", ErrInvalidInput, cmd.Item.ID)
		}

		item := cmd.Item.clone()
		item.SoldPrice = 0
		if item.BasePrice <= 0 {
			item.BasePrice = DefaultCustomBasePrice
		}
		next.Catalog = append(next.Catalog, item)
		return []Event{{Type: EvtItemAdded, Item: item}}, next, nil

	case CmdStartAuction:
		if cmd.ActorID != s.HostID {
			return nil, s, fmt.Errorf("%w: only the host can start the auction", ErrNotAuthorized)
		}
		if s.Status != StatusWaiting {
			return nil, s, fmt.Errorf("%w: auction is %s", ErrInvalidState, s.Status)
		}
		if len(s.Teams) < MinTeams {
			return nil, s, fmt.Errorf("%w: need at least %d teams, have %d", ErrInsufficientParticipants, MinTeams, len(s.Teams))
		}

		next.Status = StatusActive
		events := []Event{{Type: EvtAuctionStarted}}
		events = append(events, advance(&next)...)
		return events, next, nil

	case CmdPlaceBid:
		if s.Status != StatusActive || s.Lot == nil {
			return nil, s, ErrNoActiveAuction
		}
		idx := s.teamIndex(cmd.TeamID)
		if idx < 0 {
			return nil, s, fmt.Errorf("%w: %s", ErrUnknownParticipant, cmd.TeamID)
		}

		policy := PolicyFor(s.Config)
		if err := policy.Validate(s.Teams[idx], *s.Lot, cmd.Amount); err != nil {
			return nil, s, err
		}

		lot := next.Lot
		lot.CurrentBid = policy.NextBid(*lot, cmd.Amount)
		lot.LeaderID = cmd.TeamID
		lot.Bids = append(lot.Bids, Bid{TeamID: cmd.TeamID, Amount: cmd.Amount, At: cmd.At})
		lot.RemainingSec = s.Config.BidTimeoutSec
		return []Event{{Type: EvtBidPlaced, Lot: lot.Seq, TeamID: cmd.TeamID, Amount: lot.CurrentBid, Item: lot.Item}}, next, nil

	case CmdAdvanceItem:
		if cmd.ActorID != s.HostID {
			return nil, s, fmt.Errorf("%w: only the host can advance the auction", ErrNotAuthorized)
		}
		if s.Status != StatusActive {
			return nil, s, fmt.Errorf("%w: auction is %s", ErrInvalidState, s.Status)
		}

		var events []Event
		if next.Lot != nil {
			// Host skip: the live item closes unsold whatever the bids.
			lot := next.Lot
			next.Lot = nil
			next.History = append(next.History, Resolution{Seq: lot.Seq, Item: lot.Item, Status: OutcomeUnsold, Skipped: true})
			events = append(events, Event{Type: EvtLotUnsold, Lot: lot.Seq, Item: lot.Item, Skipped: true})
		}
		events = append(events, advance(&next)...)
		return events, next, nil

	case CmdTick:
		if s.Status != StatusActive || s.Lot == nil || s.Lot.Seq != cmd.Lot {
			return nil, s, ErrStaleTimer
		}

		lot := next.Lot
		lot.RemainingSec--
		events := []Event{{Type: EvtTimerTicked, Lot: lot.Seq}}
		if lot.RemainingSec <= 0 {
			lot.RemainingSec = 0
			events = append(events, resolve(&next))
		}
		return events, next, nil

	case CmdSettle:
		if s.Status != StatusActive || s.Lot != nil || s.LotSeq != cmd.Lot {
			return nil, s, ErrStaleTimer
		}
		return advance(&next), next, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// advance opens the next catalog item, or completes the auction when the
// catalog is exhausted.
func advance(s *State) []Event {
	if s.Cursor >= len(s.Catalog) {
		s.Status = StatusCompleted
		s.Lot = nil
		return []Event{{Type: EvtAuctionCompleted}}
	}

	item := s.Catalog[s.Cursor].clone()
	s.Cursor++
	s.LotSeq++
	s.Lot = &Lot{
		Seq:          s.LotSeq,
		Item:         item,
		CurrentBid:   PolicyFor(s.Config).OpeningBid(item),
		RemainingSec: s.Config.BidTimeoutSec,
		Bids:         []Bid{},
	}
	return []Event{{Type: EvtLotOpened, Lot: s.LotSeq, Item: item, Amount: s.Lot.CurrentBid}}
}

// resolve closes the live lot and records the outcome in history.
func resolve(s *State) Event {
	lot := s.Lot
	s.Lot = nil

	idx := s.teamIndex(lot.LeaderID)
	if lot.LeaderID == "" || idx < 0 {
		s.History = append(s.History, Resolution{Seq: lot.Seq, Item: lot.Item, Status: OutcomeUnsold})
		return Event{Type: EvtLotUnsold, Lot: lot.Seq, Item: lot.Item}
	}

	sold := lot.Item.clone()
	sold.SoldPrice = lot.CurrentBid

	team := &s.Teams[idx]
	if PolicyFor(s.Config).Debits() {
		team.RemainingBudget -= lot.CurrentBid
	}
	team.Items = append(team.Items, sold)

	s.History = append(s.History, Resolution{
		Seq:      lot.Seq,
		Item:     lot.Item,
		Status:   OutcomeSold,
		WinnerID: team.ID,
		Price:    lot.CurrentBid,
	})
	return Event{Type: EvtLotSold, Lot: lot.Seq, TeamID: team.ID, Amount: lot.CurrentBid, Item: sold}
}
