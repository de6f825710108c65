package tournament

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/auction-backend/internal/engine"
	"github.com/DoyleJ11/auction-backend/internal/ledger"
)

const admin = "admin-1"

func fixedClock() func() time.Time {
	t := time.Date(2024, 3, 22, 14, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTournament(t *testing.T, s Settings) *Tournament {
	t.Helper()
	if s.Name == "" {
		s.Name = "IPL Fantasy"
	}
	tr, err := New(admin, s, fixedClock())
	require.NoError(t, err)
	return tr
}

func TestNew_Defaults(t *testing.T) {
	tr := newTournament(t, Settings{EntryFee: 10})
	v := tr.View()

	assert.Len(t, v.ID, 8)
	assert.Equal(t, StatusCreated, v.Status)
	assert.Equal(t, DefaultMaxParticipants, v.Settings.MaxParticipants)
	assert.Equal(t, int64(DefaultBudget), v.Settings.Budget)
	assert.Equal(t, ledger.DefaultCricketRules(), v.Settings.SquadRules)

	_, err := New(admin, Settings{}, nil)
	require.ErrorIs(t, err, engine.ErrInvalidInput)
	_, err = New("", Settings{Name: "x"}, nil)
	require.ErrorIs(t, err, engine.ErrInvalidInput)
}

func TestJoin(t *testing.T) {
	tr := newTournament(t, Settings{MaxParticipants: 2})

	p, err := tr.Join("u1", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultBudget), p.RemainingBudget)

	_, err = tr.Join("u1", "alice")
	require.ErrorIs(t, err, engine.ErrInvalidInput)

	_, err = tr.Join("u2", "")
	require.NoError(t, err)

	_, err = tr.Join("u3", "carol")
	require.ErrorIs(t, err, engine.ErrInvalidState)

	msgs := tr.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, MessageSystem, msgs[0].Type)
	assert.Equal(t, "alice joined the tournament", msgs[0].Message)
	assert.Equal(t, "u2 joined the tournament", msgs[1].Message)
}

func TestJoin_ClosedOnceStarted(t *testing.T) {
	tr := newTournament(t, Settings{})
	_, err := tr.Advance(admin)
	require.NoError(t, err)

	_, err = tr.Join("u1", "alice")
	require.ErrorIs(t, err, engine.ErrInvalidState)
}

func TestAdvance(t *testing.T) {
	tr := newTournament(t, Settings{})

	_, err := tr.Advance("u1")
	require.ErrorIs(t, err, engine.ErrNotAuthorized)

	for _, want := range []Status{StatusAuctionActive, StatusTournamentActive, StatusCompleted} {
		got, err := tr.Advance(admin)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err = tr.Advance(admin)
	require.ErrorIs(t, err, engine.ErrInvalidState)
}

func TestPrizePool(t *testing.T) {
	tr := newTournament(t, Settings{EntryFee: 25})
	for _, u := range []string{"u1", "u2", "u3"} {
		_, err := tr.Join(u, u)
		require.NoError(t, err)
	}

	require.ErrorIs(t, tr.MarkEntryFeePaid("u1", "u1"), engine.ErrNotAuthorized)
	require.ErrorIs(t, tr.MarkEntryFeePaid(admin, "nobody"), engine.ErrUnknownParticipant)

	require.NoError(t, tr.MarkEntryFeePaid(admin, "u1"))
	require.NoError(t, tr.MarkEntryFeePaid(admin, "u3"))
	require.NoError(t, tr.MarkEntryFeePaid(admin, "u3"))
	assert.Equal(t, int64(50), tr.PrizePool())
	assert.Equal(t, int64(50), tr.Summary().PrizePool)
}

func TestChat(t *testing.T) {
	tr := newTournament(t, Settings{})
	_, err := tr.Join("u1", "alice")
	require.NoError(t, err)

	_, err = tr.Chat("stranger", "hi")
	require.ErrorIs(t, err, engine.ErrNotAuthorized)
	_, err = tr.Chat("u1", "   ")
	require.ErrorIs(t, err, engine.ErrInvalidInput)

	msg, err := tr.Chat("u1", " good luck ")
	require.NoError(t, err)
	assert.Equal(t, "good luck", msg.Message)
	assert.Equal(t, "alice", msg.Username)
	assert.Equal(t, MessageUser, msg.Type)
	assert.NotEmpty(t, msg.ID)
}

func TestChat_KeepsLastHundred(t *testing.T) {
	tr := newTournament(t, Settings{})
	_, err := tr.Join("u1", "alice")
	require.NoError(t, err)

	for i := range 150 {
		_, err := tr.Chat("u1", fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
	}

	msgs := tr.Messages()
	require.Len(t, msgs, 100)
	assert.Equal(t, "msg 50", msgs[0].Message)
	assert.Equal(t, "msg 149", msgs[99].Message)

	v := tr.View()
	require.Len(t, v.ChatMessages, 20)
	assert.Equal(t, "msg 130", v.ChatMessages[0].Message)
}

func TestPerformance_Points(t *testing.T) {
	perf := Performance{Runs: 72, Wickets: 1, Catches: 2, Stumpings: 1, RunOuts: 1, Fifties: 1, Centuries: 0, FiveWickets: 0}
	assert.Equal(t, 72+25+20+15+10+25, perf.Points())
	assert.Equal(t, 325, Performance{Runs: 100, Centuries: 1, FiveWickets: 1, Wickets: 5}.Points())
}

func TestUpdatePerformance_Leaderboard(t *testing.T) {
	tr := newTournament(t, Settings{})
	for _, u := range []string{"u1", "u2", "u3"} {
		_, err := tr.Join(u, "user "+u)
		require.NoError(t, err)
	}
	require.NoError(t, tr.AddToSquad("u1", engine.Item{ID: "kohli", Name: "Virat Kohli", Role: ledger.RoleBatsman}))
	require.NoError(t, tr.AddToSquad("u2", engine.Item{ID: "bumrah", Name: "Jasprit Bumrah", Role: ledger.RoleBowler}))
	require.NoError(t, tr.AddToSquad("u3", engine.Item{ID: "kohli", Name: "Virat Kohli", Role: ledger.RoleBatsman}))

	_, err := tr.UpdatePerformance("u1", "kohli", Performance{Runs: 10})
	require.ErrorIs(t, err, engine.ErrNotAuthorized)

	board, err := tr.UpdatePerformance(admin, "bumrah", Performance{Wickets: 2})
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, "u2", board[0].UserID)
	assert.Equal(t, 50, board[0].Points)
	// Ties keep join order.
	assert.Equal(t, "u1", board[1].UserID)
	assert.Equal(t, "u3", board[2].UserID)

	board, err = tr.UpdatePerformance(admin, "kohli", Performance{Runs: 64, Fifties: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u3", "u2"}, []string{board[0].UserID, board[1].UserID, board[2].UserID})
	assert.Equal(t, 89, board[0].Points)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, 3, board[2].Rank)
	assert.Equal(t, []PlayerPoints{{Name: "Virat Kohli", Points: 89}}, board[0].Squad)

	// A corrected score replaces the earlier one instead of adding to it.
	board, err = tr.UpdatePerformance(admin, "kohli", Performance{Runs: 12})
	require.NoError(t, err)
	assert.Equal(t, "u2", board[0].UserID)
	assert.Equal(t, 12, board[1].Points)
	assert.Equal(t, board, tr.Leaderboard())
}

func TestAddToSquad_Budget(t *testing.T) {
	tr := newTournament(t, Settings{Budget: 1000})
	_, err := tr.Join("u1", "alice")
	require.NoError(t, err)

	require.NoError(t, tr.AddToSquad("u1", engine.Item{ID: "p1", SoldPrice: 600}))
	require.ErrorIs(t, tr.AddToSquad("u1", engine.Item{ID: "p1"}), engine.ErrInvalidInput)
	require.ErrorIs(t, tr.AddToSquad("u1", engine.Item{ID: "p2", SoldPrice: 500}), engine.ErrInsufficientBudget)
	require.ErrorIs(t, tr.AddToSquad("nobody", engine.Item{ID: "p3"}), engine.ErrUnknownParticipant)

	v := tr.View()
	require.Len(t, v.Participants, 1)
	assert.Equal(t, int64(400), v.Participants[0].RemainingBudget)
}

func TestSquadReport(t *testing.T) {
	rules := ledger.Rules{MinPerRole: map[string]int{ledger.RoleBatsman: 1, ledger.RoleBowler: 1}, Total: 2}
	tr := newTournament(t, Settings{SquadRules: rules})
	_, err := tr.Join("u1", "alice")
	require.NoError(t, err)

	require.NoError(t, tr.AddToSquad("u1", engine.Item{ID: "p1", Role: ledger.RoleBatsman}))
	report, err := tr.SquadReport("u1")
	require.NoError(t, err)
	assert.False(t, report.Valid)

	require.NoError(t, tr.AddToSquad("u1", engine.Item{ID: "p2", Role: ledger.RoleBowler}))
	report, err = tr.SquadReport("u1")
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 1, report.Counts[ledger.RoleBowler])

	_, err = tr.SquadReport("nobody")
	require.ErrorIs(t, err, engine.ErrUnknownParticipant)
}

func TestImportAuction(t *testing.T) {
	tr := newTournament(t, Settings{})
	_, err := tr.Join("alice", "alice")
	require.NoError(t, err)

	room := engine.State{
		RoomID: "ROOM1",
		Status: engine.StatusCompleted,
		Teams: []engine.Team{
			{ID: "t1", Owner: "alice", Items: []engine.Item{{ID: "p1", SoldPrice: 200}, {ID: "p2", SoldPrice: 300}}},
			{ID: "t2", Owner: "outsider", Items: []engine.Item{{ID: "p3", SoldPrice: 100}}},
		},
	}

	_, err = tr.ImportAuction(admin, room)
	require.ErrorIs(t, err, engine.ErrInvalidState, "tournament auction not started yet")

	_, err = tr.Advance(admin)
	require.NoError(t, err)

	_, err = tr.ImportAuction("alice", room)
	require.ErrorIs(t, err, engine.ErrNotAuthorized)

	live := room
	live.Status = engine.StatusActive
	_, err = tr.ImportAuction(admin, live)
	require.ErrorIs(t, err, engine.ErrInvalidState)

	n, err := tr.ImportAuction(admin, room)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	v := tr.View()
	require.Len(t, v.Participants[0].Squad, 2)
	assert.Equal(t, int64(DefaultBudget-500), v.Participants[0].RemainingBudget)
}

func TestImportAuction_AllOrNothing(t *testing.T) {
	tr := newTournament(t, Settings{Budget: 300})
	for _, u := range []string{"bob", "alice"} {
		_, err := tr.Join(u, u)
		require.NoError(t, err)
	}
	_, err := tr.Advance(admin)
	require.NoError(t, err)

	room := engine.State{
		RoomID: "ROOM1",
		Status: engine.StatusCompleted,
		Teams: []engine.Team{
			{ID: "t1", Owner: "bob", Items: []engine.Item{{ID: "p9", SoldPrice: 50}}},
			{ID: "t2", Owner: "alice", Items: []engine.Item{{ID: "p1", SoldPrice: 200}, {ID: "p2", SoldPrice: 200}}},
		},
	}

	n, err := tr.ImportAuction(admin, room)
	require.ErrorIs(t, err, engine.ErrInsufficientBudget)
	assert.Equal(t, 0, n)
	for _, p := range tr.View().Participants {
		assert.Empty(t, p.Squad, p.UserID)
		assert.Equal(t, int64(300), p.RemainingBudget, p.UserID)
	}

	require.NoError(t, tr.AddToSquad("alice", engine.Item{ID: "p1", SoldPrice: 10}))
	room.Teams[1].Items = []engine.Item{{ID: "p1", SoldPrice: 100}, {ID: "p2", SoldPrice: 100}}
	_, err = tr.ImportAuction(admin, room)
	require.ErrorIs(t, err, engine.ErrInvalidInput)

	room.Teams[1].Items = room.Teams[1].Items[1:]
	n, err = tr.ImportAuction(admin, room)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	squads := map[string]int{}
	for _, p := range tr.View().Participants {
		squads[p.UserID] = len(p.Squad)
	}
	assert.Equal(t, map[string]int{"bob": 1, "alice": 2}, squads)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(fixedClock())

	a, err := r.Create(admin, Settings{Name: "First"})
	require.NoError(t, err)
	b, err := r.Create(admin, Settings{Name: "Second", EntryFee: 5})
	require.NoError(t, err)
	require.NotEqual(t, a.ID(), b.ID())

	got, err := r.Get(b.ID())
	require.NoError(t, err)
	assert.Same(t, b, got)

	_, err = r.Get("MISSING0")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = r.Create(admin, Settings{})
	require.ErrorIs(t, err, engine.ErrInvalidInput)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "First", list[0].Name)
	assert.Equal(t, "Second", list[1].Name)
	assert.Equal(t, int64(5), list[1].EntryFee)
}

func TestRealTournaments(t *testing.T) {
	list := RealTournaments()
	require.Len(t, list, 8)
	assert.Equal(t, RealTournament{ID: "ipl-2024", Name: "Indian Premier League 2024", Type: "T20", Sport: "cricket"}, list[0])

	list[0].Name = "changed"
	assert.Equal(t, "Indian Premier League 2024", RealTournaments()[0].Name)
}
