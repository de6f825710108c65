package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/auction-backend/internal/engine"
	"github.com/DoyleJ11/auction-backend/internal/events"
)

const host = "host-1"

// helper: receive one snapshot with a timeout so tests never hang
func recvSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return snap
	case <-time.After(within):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{} // unreachable
	}
}

func recvNoSnapshot(t *testing.T, ch <-chan Snapshot, within time.Duration) {
	t.Helper()
	select {
	case s, ok := <-ch:
		if !ok {
			return
		}
		t.Fatalf("expected no snapshot within %v, but got version %d", within, s.Version)
	case <-time.After(within):
	}
}

func drainUntilClosed(t *testing.T, ch <-chan Snapshot) {
	t.Helper()
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-time.After(time.Second):
			t.Fatal("outbox was not closed")
		}
	}
}

type recordingPublisher struct {
	mu  sync.Mutex
	evs []events.Event
}

func (p *recordingPublisher) Enqueue(evs ...events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evs = append(p.evs, evs...)
}

func (p *recordingPublisher) types() []engine.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]engine.EventType, len(p.evs))
	for i, ev := range p.evs {
		out[i] = ev.Type
	}
	return out
}

func testItems(n int) []engine.Item {
	items := make([]engine.Item, n)
	for i := range items {
		items[i] = engine.Item{ID: fmt.Sprintf("p%d", i+1), Name: fmt.Sprintf("Player %d", i+1), Role: "Batsman", BasePrice: 100}
	}
	return items
}

// newRoom starts a room with teams A and B in the waiting state.
func newRoom(t *testing.T, cfg engine.Config, items int, opts Options) *Room {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r := New(ctx, engine.NewState("ROOM1", host, cfg, testItems(items)), opts)
	require.NoError(t, r.Do(ctx, engine.Command{Type: engine.CmdAddTeam, TeamID: "A", Name: "Team A", Owner: "alice"}))
	require.NoError(t, r.Do(ctx, engine.Command{Type: engine.CmdAddTeam, TeamID: "B", Name: "Team B", Owner: "bob"}))
	return r
}

func view(t *testing.T, r *Room) View {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := r.State(ctx)
	require.NoError(t, err)
	return v
}

// frozen keeps the real timers from firing during a test.
var frozen = Options{TickInterval: time.Hour, SettleDelay: time.Hour}

func TestRoom_JoinReceivesCurrentSnapshot(t *testing.T) {
	r := newRoom(t, engine.Config{Budget: 1000}, 1, frozen)

	out := make(chan Snapshot, 2)
	require.NoError(t, r.Subscribe(context.Background(), "c1", out))

	first := recvSnapshot(t, out, 100*time.Millisecond)
	assert.Equal(t, 2, first.Version)
	assert.Len(t, first.State.Teams, 2)
	assert.Equal(t, engine.StatusWaiting, first.State.Status)
}

func TestRoom_SubscribeNeedsBufferedOutbox(t *testing.T) {
	r := newRoom(t, engine.Config{Budget: 1000}, 1, frozen)

	err := r.Subscribe(context.Background(), "c1", make(chan Snapshot))
	require.ErrorIs(t, err, engine.ErrInvalidInput)
	assert.Equal(t, 0, view(t, r).NumClients)

	out := make(chan Snapshot, 1)
	require.NoError(t, r.Subscribe(context.Background(), "c1", out))
	recvSnapshot(t, out, 100*time.Millisecond)
	assert.Equal(t, 1, view(t, r).NumClients)
}

func TestRoom_CommandBroadcastsAndPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	opts := frozen
	opts.Events = pub
	r := newRoom(t, engine.Config{Budget: 1000}, 2, opts)

	out1 := make(chan Snapshot, 4)
	out2 := make(chan Snapshot, 4)
	require.NoError(t, r.Subscribe(context.Background(), "c1", out1))
	require.NoError(t, r.Subscribe(context.Background(), "c2", out2))
	recvSnapshot(t, out1, 100*time.Millisecond)
	recvSnapshot(t, out2, 100*time.Millisecond)

	require.NoError(t, r.Do(context.Background(), engine.Command{Type: engine.CmdStartAuction, ActorID: host}))

	for _, out := range []chan Snapshot{out1, out2} {
		snap := recvSnapshot(t, out, 100*time.Millisecond)
		assert.Equal(t, 3, snap.Version)
		require.NotNil(t, snap.State.Lot)
		assert.Equal(t, "p1", snap.State.Lot.Item.ID)
	}

	assert.Equal(t, []engine.EventType{
		engine.EvtTeamAdded, engine.EvtTeamAdded, engine.EvtAuctionStarted, engine.EvtLotOpened,
	}, pub.types())
}

func TestRoom_RejectedCommandRepliesOnly(t *testing.T) {
	r := newRoom(t, engine.Config{Budget: 1000}, 1, frozen)

	out := make(chan Snapshot, 2)
	require.NoError(t, r.Subscribe(context.Background(), "c1", out))
	recvSnapshot(t, out, 100*time.Millisecond)

	err := r.Do(context.Background(), engine.Command{Type: engine.CmdPlaceBid, TeamID: "A", Amount: 500})
	require.ErrorIs(t, err, engine.ErrNoActiveAuction)

	err = r.Do(context.Background(), engine.Command{Type: engine.CmdStartAuction, ActorID: "someone"})
	require.ErrorIs(t, err, engine.ErrNotAuthorized)

	recvNoSnapshot(t, out, 50*time.Millisecond)
	v := view(t, r)
	assert.Equal(t, 2, v.Version)
	assert.Equal(t, engine.StatusWaiting, v.State.Status)
}

func TestRoom_DropSlowClient(t *testing.T) {
	r := newRoom(t, engine.Config{Budget: 1000}, 1, frozen)

	out := make(chan Snapshot, 1)
	require.NoError(t, r.Subscribe(context.Background(), "c1", out))

	// The join snapshot fills the buffer, so the next broadcast drops the client.
	require.NoError(t, r.Do(context.Background(), engine.Command{Type: engine.CmdStartAuction, ActorID: host}))

	v := view(t, r)
	assert.Equal(t, 0, v.NumClients)
}

func TestRoom_Unsubscribe_ClosesOutbox(t *testing.T) {
	r := newRoom(t, engine.Config{Budget: 1000}, 1, frozen)

	out := make(chan Snapshot, 2)
	require.NoError(t, r.Subscribe(context.Background(), "c1", out))
	recvSnapshot(t, out, 100*time.Millisecond)

	r.Unsubscribe("c1")
	select {
	case _, ok := <-out:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("outbox was not closed")
	}
	assert.Equal(t, 0, view(t, r).NumClients)
}

func TestRoom_TimerGen_DropsStaleTicks(t *testing.T) {
	r := newRoom(t, engine.Config{Budget: 1000, BidTimeoutSec: 30}, 2, frozen)
	require.NoError(t, r.Do(context.Background(), engine.Command{Type: engine.CmdStartAuction, ActorID: host}))

	armed := view(t, r)
	require.NotNil(t, armed.State.Lot)

	r.Inbox() <- timerFired{gen: armed.TimerGen, lot: 1}
	assert.Equal(t, 29, view(t, r).State.Lot.RemainingSec)

	// A bid restarts the countdown under a new generation.
	require.NoError(t, r.Do(context.Background(), engine.Command{Type: engine.CmdPlaceBid, TeamID: "A", Amount: 200}))
	afterBid := view(t, r)
	require.Greater(t, afterBid.TimerGen, armed.TimerGen)
	assert.Equal(t, 30, afterBid.State.Lot.RemainingSec)

	r.Inbox() <- timerFired{gen: armed.TimerGen, lot: 1}
	v := view(t, r)
	assert.Equal(t, 30, v.State.Lot.RemainingSec)
	assert.Equal(t, afterBid.Version, v.Version)
}

func TestRoom_TimerGen_DropsStaleSettle(t *testing.T) {
	r := newRoom(t, engine.Config{Budget: 1000, BidTimeoutSec: 1}, 3, frozen)
	require.NoError(t, r.Do(context.Background(), engine.Command{Type: engine.CmdStartAuction, ActorID: host}))

	armed := view(t, r)
	r.Inbox() <- timerFired{gen: armed.TimerGen, lot: 1}

	resolved := view(t, r)
	require.Nil(t, resolved.State.Lot)
	require.Len(t, resolved.State.History, 1)
	assert.Equal(t, engine.OutcomeUnsold, resolved.State.History[0].Status)
	settleGen := resolved.TimerGen

	// The host moves on before the settle delay runs out.
	require.NoError(t, r.Do(context.Background(), engine.Command{Type: engine.CmdAdvanceItem, ActorID: host}))

	r.Inbox() <- settleFired{gen: settleGen, lot: 1}
	v := view(t, r)
	assert.Equal(t, 2, v.State.LotSeq)
	require.NotNil(t, v.State.Lot)
	assert.Equal(t, "p2", v.State.Lot.Item.ID)
}

func TestRoom_TimersDriveAuctionToCompletion(t *testing.T) {
	opts := Options{TickInterval: 5 * time.Millisecond, SettleDelay: 5 * time.Millisecond}
	r := newRoom(t, engine.Config{Budget: 1000, BidTimeoutSec: 20}, 3, opts)

	require.NoError(t, r.Do(context.Background(), engine.Command{Type: engine.CmdStartAuction, ActorID: host}))
	require.NoError(t, r.Do(context.Background(), engine.Command{Type: engine.CmdPlaceBid, TeamID: "A", Amount: 250}))

	require.Eventually(t, func() bool {
		return view(t, r).State.Status == engine.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	s := view(t, r).State
	require.Len(t, s.History, 3)
	assert.Equal(t, engine.OutcomeSold, s.History[0].Status)
	assert.Equal(t, "A", s.History[0].WinnerID)
	assert.Equal(t, engine.OutcomeUnsold, s.History[1].Status)
	assert.Equal(t, engine.OutcomeUnsold, s.History[2].Status)

	a, _ := s.Team("A")
	assert.Equal(t, int64(750), a.RemainingBudget)
	assert.Nil(t, s.Lot)
}

func TestRoom_ConcurrentBidsAreSerialized(t *testing.T) {
	r := newRoom(t, engine.Config{Budget: 1_000_000, BidTimeoutSec: 30}, 1, frozen)
	require.NoError(t, r.Do(context.Background(), engine.Command{Type: engine.CmdStartAuction, ActorID: host}))

	const bidders = 40
	var wg sync.WaitGroup
	errs := make([]error, bidders)
	for i := range bidders {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			team := "A"
			if i%2 == 1 {
				team = "B"
			}
			errs[i] = r.Do(context.Background(), engine.Command{Type: engine.CmdPlaceBid, TeamID: team, Amount: int64(1000 + i*10)})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			require.True(t, errors.Is(err, engine.ErrBidTooLow), "unexpected error: %v", err)
		}
	}

	lot := view(t, r).State.Lot
	require.NotNil(t, lot)
	require.NotEmpty(t, lot.Bids)
	for i := 1; i < len(lot.Bids); i++ {
		assert.Greater(t, lot.Bids[i].Amount, lot.Bids[i-1].Amount)
	}
	assert.Equal(t, int64(1000+(bidders-1)*10), lot.CurrentBid)
	assert.NoError(t, errs[bidders-1])
}

func TestRoom_Shutdown_StopsTimerAndRejects(t *testing.T) {
	opts := Options{TickInterval: 5 * time.Millisecond, SettleDelay: 5 * time.Millisecond}
	r := newRoom(t, engine.Config{Budget: 1000, BidTimeoutSec: 100}, 1, opts)
	require.NoError(t, r.Do(context.Background(), engine.Command{Type: engine.CmdStartAuction, ActorID: host}))

	out := make(chan Snapshot, 64)
	require.NoError(t, r.Subscribe(context.Background(), "c1", out))

	r.Close()
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("room did not shut down")
	}

	// Whatever was broadcast before shutdown is drained; the outbox must end closed.
	drainUntilClosed(t, out)

	err := r.Do(context.Background(), engine.Command{Type: engine.CmdPlaceBid, TeamID: "A", Amount: 500})
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, err, engine.ErrRoomNotFound)
}
