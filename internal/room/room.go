package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/auction-backend/internal/engine"
	"github.com/DoyleJ11/auction-backend/internal/events"
)

var ErrClosed = fmt.Errorf("%w: room closed", engine.ErrRoomNotFound)

type Msg interface{ isRoomMsg() }

// FromClient applies Cmd. The outcome goes to Reply only; successful commands
// are also broadcast to every subscriber.
type FromClient struct {
	Cmd   engine.Command
	Reply chan error
}

func (FromClient) isRoomMsg() {}

// Join subscribes a client. Outbox must be buffered: snapshots are never
// waited on, and a client whose outbox is full is dropped.
type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isRoomMsg() {}

type Leave struct{ ClientID string }

func (Leave) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

type timerFired struct{ gen, lot int }

func (timerFired) isRoomMsg() {}

type settleFired struct{ gen, lot int }

func (settleFired) isRoomMsg() {}

// Snapshot is shared by all subscribers and must be treated as read-only.
type Snapshot struct {
	Version int
	State   engine.State
}

type View struct {
	Version    int
	NumClients int
	TimerGen   int
	State      engine.State
}

type Publisher interface {
	Enqueue(evs ...events.Event)
}

type Options struct {
	TickInterval time.Duration
	SettleDelay  time.Duration
	Events       Publisher
	Logger       *zap.Logger
	Now          func() time.Time
}

func (o *Options) defaults() {
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = 2 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Room owns one auction. All state changes happen on its loop goroutine, so
// commands are applied one at a time in arrival order.
type Room struct {
	id      string
	inbox   chan Msg
	state   engine.State
	version int
	clients map[string]chan Snapshot
	opts    Options
	log     *zap.Logger

	// timerGen tags the countdown or settle timer currently armed; firings
	// from any other generation are dropped.
	timerGen int
	stopTick context.CancelFunc
	settle   *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, initial engine.State, opts Options) *Room {
	opts.defaults()
	ctx, cancel := context.WithCancel(parent)

	r := &Room{
		id:      initial.RoomID,
		inbox:   make(chan Msg, 64), // Small buffer
		state:   initial,
		clients: make(map[string]chan Snapshot),
		opts:    opts,
		log:     opts.Logger.Named("room").With(zap.String("room", initial.RoomID)),
		ctx:     ctx,
		cancel:  cancel,
	}

	go r.loop()
	return r
}

func (r *Room) ID() string { return r.id }

// Expose the inbox so tests or the WS layer can send messages.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done is closed once the room has shut down.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

// Do applies cmd and waits for its outcome.
func (r *Room) Do(ctx context.Context, cmd engine.Command) error {
	reply := make(chan error, 1)
	if err := r.send(ctx, FromClient{Cmd: cmd, Reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-r.ctx.Done():
		return ErrClosed
	}
}

func (r *Room) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := r.send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-r.ctx.Done():
		return View{}, ErrClosed
	}
}

func (r *Room) Subscribe(ctx context.Context, clientID string, outbox chan Snapshot) error {
	if cap(outbox) == 0 {
		return fmt.Errorf("%w: outbox must be buffered", engine.ErrInvalidInput)
	}
	return r.send(ctx, Join{ClientID: clientID, Outbox: outbox})
}

func (r *Room) Unsubscribe(clientID string) {
	_ = r.send(context.Background(), Leave{ClientID: clientID})
}

func (r *Room) Close() {
	_ = r.send(context.Background(), Shutdown{})
}

func (r *Room) send(ctx context.Context, m Msg) error {
	select {
	case r.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.ctx.Done():
		return ErrClosed
	}
}

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				r.clients[msg.ClientID] = msg.Outbox
				r.sendTo(msg.ClientID, Snapshot{Version: r.version, State: r.state.Clone()})

			case Leave:
				if ch, ok := r.clients[msg.ClientID]; ok {
					close(ch)
					delete(r.clients, msg.ClientID)
				}

			case FromClient:
				err := r.apply(msg.Cmd)
				if err != nil {
					r.log.Debug("command rejected", zap.String("cmd", string(msg.Cmd.Type)), zap.Error(err))
				}
				if msg.Reply != nil {
					msg.Reply <- err
				}

			case GetState:
				msg.Reply <- View{
					Version:    r.version,
					NumClients: len(r.clients),
					TimerGen:   r.timerGen,
					State:      r.state.Clone(),
				}

			case timerFired:
				if msg.gen != r.timerGen {
					break
				}
				r.fire(engine.Command{Type: engine.CmdTick, Lot: msg.lot})

			case settleFired:
				if msg.gen != r.timerGen {
					break
				}
				r.fire(engine.Command{Type: engine.CmdSettle, Lot: msg.lot})

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

// fire applies a timer command. Timer failures are logged and never reach a client.
func (r *Room) fire(cmd engine.Command) {
	err := r.apply(cmd)
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrStaleTimer):
		r.log.Debug("stale timer dropped", zap.String("cmd", string(cmd.Type)), zap.Int("lot", cmd.Lot))
	default:
		r.log.Warn("timer command failed", zap.String("cmd", string(cmd.Type)), zap.Int("lot", cmd.Lot), zap.Error(err))
		if cmd.Type == engine.CmdTick {
			// Keep the room moving: the next settle opens the following item.
			r.armSettle(r.state.LotSeq)
		}
	}
}

func (r *Room) apply(cmd engine.Command) error {
	now := r.opts.Now()
	if cmd.At.IsZero() {
		cmd.At = now
	}

	evs, next, err := engine.Apply(r.state, cmd)
	if err != nil {
		return err
	}

	r.state = next
	r.version++
	r.broadcast(Snapshot{Version: r.version, State: r.state.Clone()})

	if r.opts.Events != nil {
		r.opts.Events.Enqueue(events.FromEngine(r.id, r.version, now, evs)...)
	}
	r.logOutcomes(evs)
	r.rearm(evs)
	return nil
}

// rearm starts, restarts or stops the timers after a state change.
func (r *Room) rearm(evs []engine.Event) {
	switch {
	case r.state.Status != engine.StatusActive:
		r.stopTimers()
	case r.state.Lot != nil:
		if engine.ContainsEvent(evs, engine.EvtLotOpened) || engine.ContainsEvent(evs, engine.EvtBidPlaced) {
			r.armTicker(r.state.Lot.Seq)
		}
	case engine.ContainsEvent(evs, engine.EvtLotSold) || engine.ContainsEvent(evs, engine.EvtLotUnsold):
		r.armSettle(r.state.LotSeq)
	}
}

func (r *Room) armTicker(lot int) {
	r.stopTimers()
	r.timerGen++
	gen := r.timerGen

	ctx, cancel := context.WithCancel(r.ctx)
	r.stopTick = cancel

	go func() {
		t := time.NewTicker(r.opts.TickInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				select {
				case r.inbox <- timerFired{gen: gen, lot: lot}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
}

func (r *Room) armSettle(lot int) {
	r.stopTimers()
	r.timerGen++
	gen := r.timerGen

	r.settle = time.AfterFunc(r.opts.SettleDelay, func() {
		select {
		case r.inbox <- settleFired{gen: gen, lot: lot}:
		case <-r.ctx.Done():
		}
	})
}

func (r *Room) stopTimers() {
	if r.stopTick != nil {
		r.stopTick()
		r.stopTick = nil
	}
	if r.settle != nil {
		r.settle.Stop()
		r.settle = nil
	}
}

func (r *Room) logOutcomes(evs []engine.Event) {
	for _, e := range evs {
		switch e.Type {
		case engine.EvtLotSold:
			r.log.Info("item sold", zap.Int("lot", e.Lot), zap.String("item", e.Item.Name), zap.String("team", e.TeamID), zap.Int64("price", e.Amount))
		case engine.EvtLotUnsold:
			r.log.Info("item unsold", zap.Int("lot", e.Lot), zap.String("item", e.Item.Name), zap.Bool("skipped", e.Skipped))
		case engine.EvtAuctionCompleted:
			r.log.Info("auction completed", zap.Int("lots", len(r.state.History)))
		}
	}
}

func (r *Room) shutdown() {
	r.stopTimers()
	for id, ch := range r.clients {
		close(ch) // Tell client no more snapshots
		delete(r.clients, id)
	}
	r.cancel()
}

func (r *Room) sendTo(id string, snap Snapshot) {
	ch := r.clients[id]
	select {
	case ch <- snap:
		//ok
	default:
		// Client is slow/full - drop them.
		close(ch)
		delete(r.clients, id)
	}
}

func (r *Room) broadcast(snap Snapshot) {
	for id := range r.clients {
		r.sendTo(id, snap)
	}
}
