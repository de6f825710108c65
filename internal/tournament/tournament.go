// Package tournament runs fantasy leagues on top of auctioned squads:
// participants, entry fees, chat and a points leaderboard.
package tournament

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/google/btree"
	"github.com/google/uuid"

	"github.com/DoyleJ11/auction-backend/internal/engine"
	"github.com/DoyleJ11/auction-backend/internal/ledger"
)

type Status string

const (
	StatusCreated          Status = "created"
	StatusAuctionActive    Status = "auction_active"
	StatusTournamentActive Status = "tournament_active"
	StatusCompleted        Status = "completed"
)

const (
	DefaultMaxParticipants = 8
	DefaultBudget          = 50_000_000
	chatCapacity           = 100
	stateChatTail          = 20
)

var ErrNotFound = errors.New("tournament not found")

type Settings struct {
	Name            string       `json:"name"`
	RealTournament  string       `json:"realTournament"`
	EntryFee        int64        `json:"entryFee"`
	MaxParticipants int          `json:"maxParticipants"`
	Budget          int64        `json:"budget"`
	SquadRules      ledger.Rules `json:"squadRules"`
}

func (s *Settings) defaults() {
	if s.MaxParticipants <= 0 {
		s.MaxParticipants = DefaultMaxParticipants
	}
	if s.Budget <= 0 {
		s.Budget = DefaultBudget
	}
	if len(s.SquadRules.MinPerRole) == 0 && s.SquadRules.Total == 0 {
		s.SquadRules = ledger.DefaultCricketRules()
	}
}

// Performance is one player's match statistics.
type Performance struct {
	Runs        int `json:"runs"`
	Wickets     int `json:"wickets"`
	Catches     int `json:"catches"`
	Stumpings   int `json:"stumpings"`
	RunOuts     int `json:"runOuts"`
	Fifties     int `json:"fifties"`
	Centuries   int `json:"centuries"`
	FiveWickets int `json:"fiveWickets"`
}

// Points scores a performance.
func (p Performance) Points() int {
	return p.Runs*1 +
		p.Wickets*25 +
		p.Catches*10 +
		p.Stumpings*15 +
		p.RunOuts*10 +
		p.Fifties*25 +
		p.Centuries*50 +
		p.FiveWickets*50
}

type SquadPlayer struct {
	Item        engine.Item  `json:"item"`
	Performance *Performance `json:"performance,omitempty"`
	Points      int          `json:"points"`
}

type Participant struct {
	UserID          string        `json:"userId"`
	Username        string        `json:"username"`
	Squad           []SquadPlayer `json:"squad"`
	Budget          int64         `json:"budget"`
	RemainingBudget int64         `json:"remainingBudget"`
	Points          int           `json:"points"`
	EntryFeePaid    bool          `json:"entryFeePaid"`
	JoinedAt        time.Time     `json:"joinedAt"`

	order int
}

type MessageType string

const (
	MessageUser   MessageType = "user"
	MessageSystem MessageType = "system"
)

type ChatMessage struct {
	ID        string      `json:"id"`
	UserID    string      `json:"userId"`
	Username  string      `json:"username"`
	Message   string      `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
	Type      MessageType `json:"type"`
}

type PlayerPoints struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

type LeaderboardEntry struct {
	Rank     int            `json:"rank"`
	UserID   string         `json:"userId"`
	Username string         `json:"username"`
	Points   int            `json:"points"`
	Squad    []PlayerPoints `json:"squad"`
}

// View is a point-in-time copy of a tournament for serialization.
type View struct {
	ID               string             `json:"id"`
	AdminID          string             `json:"adminId"`
	Settings         Settings           `json:"settings"`
	Participants     []Participant      `json:"participants"`
	PrizePool        int64              `json:"prizePool"`
	Status           Status             `json:"status"`
	ParticipantCount int                `json:"participantCount"`
	ChatMessages     []ChatMessage      `json:"chatMessages"`
	Leaderboard      []LeaderboardEntry `json:"leaderboard"`
	CreatedAt        time.Time          `json:"createdAt"`
}

type Summary struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	RealTournament  string    `json:"realTournament"`
	EntryFee        int64     `json:"entryFee"`
	PrizePool       int64     `json:"prizePool"`
	Participants    int       `json:"participants"`
	MaxParticipants int       `json:"maxParticipants"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

// rank orders the leaderboard: most points first, earlier joiners win ties.
type rank struct {
	points int
	order  int
	userID string
}

func rankLess(a, b rank) bool {
	if a.points != b.points {
		return a.points > b.points
	}
	return a.order < b.order
}

type Tournament struct {
	mu sync.Mutex

	id        string
	adminID   string
	settings  Settings
	status    Status
	createdAt time.Time
	now       func() time.Time

	participants map[string]*Participant
	joined       int
	ranks        *btree.BTreeG[rank]
	chat         *deque.Deque[ChatMessage]
}

func New(adminID string, settings Settings, now func() time.Time) (*Tournament, error) {
	if strings.TrimSpace(adminID) == "" {
		return nil, fmt.Errorf("%w: admin id is required", engine.ErrInvalidInput)
	}
	if strings.TrimSpace(settings.Name) == "" {
		return nil, fmt.Errorf("%w: tournament name is required", engine.ErrInvalidInput)
	}
	if settings.EntryFee < 0 {
		return nil, fmt.Errorf("%w: entry fee cannot be negative", engine.ErrInvalidInput)
	}
	if now == nil {
		now = time.Now
	}
	settings.defaults()

	return &Tournament{
		id:           strings.ToUpper(uuid.NewString()[:8]),
		adminID:      adminID,
		settings:     settings,
		status:       StatusCreated,
		createdAt:    now().UTC(),
		now:          now,
		participants: make(map[string]*Participant),
		ranks:        btree.NewG(2, btree.LessFunc[rank](rankLess)),
		chat:         deque.New[ChatMessage](chatCapacity),
	}, nil
}

func (t *Tournament) ID() string { return t.id }

// Join adds userID while the tournament is still open.
func (t *Tournament) Join(userID, username string) (Participant, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if strings.TrimSpace(userID) == "" {
		return Participant{}, fmt.Errorf("%w: user id is required", engine.ErrInvalidInput)
	}
	if t.status != StatusCreated {
		return Participant{}, fmt.Errorf("%w: tournament is %s", engine.ErrInvalidState, t.status)
	}
	if _, ok := t.participants[userID]; ok {
		return Participant{}, fmt.Errorf("%w: %s already joined", engine.ErrInvalidInput, userID)
	}
	if len(t.participants) >= t.settings.MaxParticipants {
		return Participant{}, fmt.Errorf("%w: tournament is full", engine.ErrInvalidState)
	}
	if username == "" {
		username = userID
	}

	p := &Participant{
		UserID:          userID,
		Username:        username,
		Squad:           []SquadPlayer{},
		Budget:          t.settings.Budget,
		RemainingBudget: t.settings.Budget,
		JoinedAt:        t.now().UTC(),
		order:           t.joined,
	}
	t.joined++
	t.participants[userID] = p
	t.ranks.ReplaceOrInsert(rank{points: 0, order: p.order, userID: userID})

	t.system(fmt.Sprintf("%s joined the tournament", username))
	return p.clone(), nil
}

// MarkEntryFeePaid records userID's fee. Only the admin may do this.
func (t *Tournament) MarkEntryFeePaid(adminID, userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if adminID != t.adminID {
		return fmt.Errorf("%w: only the admin can record payments", engine.ErrNotAuthorized)
	}
	p, ok := t.participants[userID]
	if !ok {
		return fmt.Errorf("%w: %s", engine.ErrUnknownParticipant, userID)
	}
	p.EntryFeePaid = true
	return nil
}

func (t *Tournament) PrizePool() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.prizePool()
}

func (t *Tournament) prizePool() int64 {
	var paid int64
	for _, p := range t.participants {
		if p.EntryFeePaid {
			paid++
		}
	}
	return paid * t.settings.EntryFee
}

// Advance moves the tournament to its next status. Only the admin may do this.
func (t *Tournament) Advance(adminID string) (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if adminID != t.adminID {
		return t.status, fmt.Errorf("%w: only the admin can change the tournament status", engine.ErrNotAuthorized)
	}

	switch t.status {
	case StatusCreated:
		t.status = StatusAuctionActive
		t.system("Tournament auction has started!")
	case StatusAuctionActive:
		t.status = StatusTournamentActive
		t.system("The auction is over, the tournament is live!")
	case StatusTournamentActive:
		t.status = StatusCompleted
		t.system("The tournament has finished.")
	default:
		return t.status, fmt.Errorf("%w: tournament already completed", engine.ErrInvalidState)
	}
	return t.status, nil
}

// Chat posts message from a participant.
func (t *Tournament) Chat(userID, message string) (ChatMessage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.participants[userID]
	if !ok {
		return ChatMessage{}, fmt.Errorf("%w: only participants can chat", engine.ErrNotAuthorized)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return ChatMessage{}, fmt.Errorf("%w: message is empty", engine.ErrInvalidInput)
	}

	msg := ChatMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		Username:  p.Username,
		Message:   message,
		Timestamp: t.now().UTC(),
		Type:      MessageUser,
	}
	t.push(msg)
	return msg, nil
}

// Messages returns the retained chat, oldest first.
func (t *Tournament) Messages() []ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.messages(0)
}

func (t *Tournament) messages(tail int) []ChatMessage {
	n := t.chat.Len()
	start := 0
	if tail > 0 && n > tail {
		start = n - tail
	}
	out := make([]ChatMessage, 0, n-start)
	for i := start; i < n; i++ {
		out = append(out, t.chat.At(i))
	}
	return out
}

func (t *Tournament) system(text string) {
	t.push(ChatMessage{
		ID:        uuid.NewString(),
		UserID:    "system",
		Username:  "System",
		Message:   text,
		Timestamp: t.now().UTC(),
		Type:      MessageSystem,
	})
}

func (t *Tournament) push(msg ChatMessage) {
	t.chat.PushBack(msg)
	for t.chat.Len() > chatCapacity {
		t.chat.PopFront()
	}
}

// AddToSquad gives userID an acquired item, charging its sold price.
func (t *Tournament) AddToSquad(userID string, item engine.Item) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addToSquad(userID, item)
}

func (t *Tournament) addToSquad(userID string, item engine.Item) error {
	p, ok := t.participants[userID]
	if !ok {
		return fmt.Errorf("%w: %s", engine.ErrUnknownParticipant, userID)
	}
	if item.ID == "" {
		return fmt.Errorf("%w: item id is required", engine.ErrInvalidInput)
	}
	for _, sp := range p.Squad {
		if sp.Item.ID == item.ID {
			return fmt.Errorf("%w: %s is already in the squad", engine.ErrInvalidInput, item.ID)
		}
	}
	if item.SoldPrice > p.RemainingBudget {
		return fmt.Errorf("%w: %d exceeds remaining budget %d", engine.ErrInsufficientBudget, item.SoldPrice, p.RemainingBudget)
	}

	p.RemainingBudget -= item.SoldPrice
	p.Squad = append(p.Squad, SquadPlayer{Item: item})
	return nil
}

// ImportAuction copies every acquisition from a finished auction room into
// the squads of participants who own a team there. It returns the number of
// items imported. Either every item is imported or none is.
func (t *Tournament) ImportAuction(adminID string, s engine.State) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if adminID != t.adminID {
		return 0, fmt.Errorf("%w: only the admin can import squads", engine.ErrNotAuthorized)
	}
	if t.status != StatusAuctionActive {
		return 0, fmt.Errorf("%w: squads are imported while the auction is active", engine.ErrInvalidState)
	}
	if s.Status != engine.StatusCompleted {
		return 0, fmt.Errorf("%w: room %s has not completed", engine.ErrInvalidState, s.RoomID)
	}

	pending := make(map[string][]engine.Item)
	var owners []string
	for _, team := range s.Teams {
		if _, ok := t.participants[team.Owner]; !ok {
			continue
		}
		if _, seen := pending[team.Owner]; !seen {
			owners = append(owners, team.Owner)
		}
		pending[team.Owner] = append(pending[team.Owner], team.Items...)
	}

	for _, owner := range owners {
		if err := t.checkImport(t.participants[owner], pending[owner]); err != nil {
			return 0, err
		}
	}

	imported := 0
	for _, owner := range owners {
		for _, it := range pending[owner] {
			if err := t.addToSquad(owner, it); err != nil {
				// Unreachable after checkImport.
				return imported, err
			}
			imported++
		}
	}
	return imported, nil
}

// checkImport reports whether items can all be added to p's squad.
func (t *Tournament) checkImport(p *Participant, items []engine.Item) error {
	held := make(map[string]bool, len(p.Squad)+len(items))
	for _, sp := range p.Squad {
		held[sp.Item.ID] = true
	}

	var total int64
	for _, it := range items {
		if it.ID == "" {
			return fmt.Errorf("%w: item id is required", engine.ErrInvalidInput)
		}
		if held[it.ID] {
			return fmt.Errorf("%w: %s is already in the squad of %s", engine.ErrInvalidInput, it.ID, p.UserID)
		}
		held[it.ID] = true
		total += it.SoldPrice
	}
	if total > p.RemainingBudget {
		return fmt.Errorf("%w: %s needs %d, has %d", engine.ErrInsufficientBudget, p.UserID, total, p.RemainingBudget)
	}
	return nil
}

func (t *Tournament) SquadReport(userID string) (ledger.Report, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.participants[userID]
	if !ok {
		return ledger.Report{}, fmt.Errorf("%w: %s", engine.ErrUnknownParticipant, userID)
	}
	items := make([]engine.Item, len(p.Squad))
	for i, sp := range p.Squad {
		items[i] = sp.Item
	}
	return ledger.Validate(items, t.settings.SquadRules), nil
}

// UpdatePerformance scores playerID's latest performance for every squad that
// holds the player. The new score replaces the player's previous one.
func (t *Tournament) UpdatePerformance(adminID, playerID string, perf Performance) ([]LeaderboardEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if adminID != t.adminID {
		return nil, fmt.Errorf("%w: only the admin can record performances", engine.ErrNotAuthorized)
	}

	points := perf.Points()
	for _, p := range t.participants {
		for i := range p.Squad {
			sp := &p.Squad[i]
			if sp.Item.ID != playerID {
				continue
			}
			delta := points - sp.Points
			pc := perf
			sp.Performance = &pc
			sp.Points = points

			t.ranks.Delete(rank{points: p.Points, order: p.order, userID: p.UserID})
			p.Points += delta
			t.ranks.ReplaceOrInsert(rank{points: p.Points, order: p.order, userID: p.UserID})
		}
	}
	return t.leaderboard(), nil
}

func (t *Tournament) Leaderboard() []LeaderboardEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.leaderboard()
}

func (t *Tournament) leaderboard() []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, t.ranks.Len())
	t.ranks.Ascend(func(r rank) bool {
		p := t.participants[r.userID]
		squad := make([]PlayerPoints, len(p.Squad))
		for i, sp := range p.Squad {
			squad[i] = PlayerPoints{Name: sp.Item.Name, Points: sp.Points}
		}
		out = append(out, LeaderboardEntry{
			Rank:     len(out) + 1,
			UserID:   p.UserID,
			Username: p.Username,
			Points:   p.Points,
			Squad:    squad,
		})
		return true
	})
	return out
}

// View returns a copy of the tournament with the most recent chat messages.
func (t *Tournament) View() View {
	t.mu.Lock()
	defer t.mu.Unlock()

	participants := make([]Participant, 0, len(t.participants))
	t.ranks.Ascend(func(r rank) bool {
		participants = append(participants, t.participants[r.userID].clone())
		return true
	})

	return View{
		ID:               t.id,
		AdminID:          t.adminID,
		Settings:         t.settings,
		Participants:     participants,
		PrizePool:        t.prizePool(),
		Status:           t.status,
		ParticipantCount: len(t.participants),
		ChatMessages:     t.messages(stateChatTail),
		Leaderboard:      t.leaderboard(),
		CreatedAt:        t.createdAt,
	}
}

func (t *Tournament) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Summary{
		ID:              t.id,
		Name:            t.settings.Name,
		RealTournament:  t.settings.RealTournament,
		EntryFee:        t.settings.EntryFee,
		PrizePool:       t.prizePool(),
		Participants:    len(t.participants),
		MaxParticipants: t.settings.MaxParticipants,
		Status:          t.status,
		CreatedAt:       t.createdAt,
	}
}

func (p *Participant) clone() Participant {
	out := *p
	out.Squad = make([]SquadPlayer, len(p.Squad))
	for i, sp := range p.Squad {
		out.Squad[i] = sp
		if sp.Performance != nil {
			perf := *sp.Performance
			out.Squad[i].Performance = &perf
		}
	}
	return out
}
