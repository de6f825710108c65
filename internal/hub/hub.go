// Package hub is the registry of live rooms, keyed by join code.
package hub

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/DoyleJ11/auction-backend/internal/engine"
	"github.com/DoyleJ11/auction-backend/internal/room"
)

var ErrClosed = fmt.Errorf("%w: hub is shut down", engine.ErrRoomNotFound)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 8
)

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	HostID  string
	Config  engine.Config
	Catalog []engine.Item
	Reply   chan created
}

type created struct {
	room *room.Room
	err  error
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

type RemoveRoom struct {
	Code string
}

type CountRooms struct {
	Reply chan int
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (CountRooms) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox chan HubMsg
	rooms map[string]*room.Room
	opts  room.Options

	// newCode is swapped in tests to force collisions.
	newCode func() (string, error)
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, opts room.Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		rooms:   make(map[string]*room.Room),
		opts:    opts,
		newCode: func() (string, error) { return gonanoid.Generate(codeAlphabet, codeLength) },
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Create opens a room hosted by hostID under a fresh join code.
func (h *Hub) Create(ctx context.Context, hostID string, cfg engine.Config, catalog []engine.Item) (*room.Room, error) {
	if hostID == "" {
		return nil, fmt.Errorf("%w: host id is required", engine.ErrInvalidInput)
	}
	if cfg.Budget < 0 {
		return nil, fmt.Errorf("%w: budget cannot be negative", engine.ErrInvalidInput)
	}
	if cfg.Mode != "" && cfg.Mode != engine.ModeStandard && cfg.Mode != engine.ModeFriendly {
		return nil, fmt.Errorf("%w: unknown mode %q", engine.ErrInvalidInput, cfg.Mode)
	}

	reply := make(chan created, 1)
	if err := h.send(ctx, CreateRoom{HostID: hostID, Config: cfg, Catalog: catalog, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res.room, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, ErrClosed
	}
}

// Get returns the room with the given code or ErrRoomNotFound.
func (h *Hub) Get(ctx context.Context, code string) (*room.Room, error) {
	reply := make(chan *room.Room, 1)
	if err := h.send(ctx, GetRoom{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		if r == nil {
			return nil, fmt.Errorf("%w: %s", engine.ErrRoomNotFound, code)
		}
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.ctx.Done():
		return nil, ErrClosed
	}
}

func (h *Hub) Remove(code string) {
	_ = h.send(context.Background(), RemoveRoom{Code: code})
}

func (h *Hub) Len(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	if err := h.send(ctx, CountRooms{Reply: reply}); err != nil {
		return 0, err
	}
	select {
	case n := <-reply:
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-h.ctx.Done():
		return 0, ErrClosed
	}
}

// Shutdown closes every room and stops the hub.
func (h *Hub) Shutdown() {
	_ = h.send(context.Background(), ShutdownHub{})
	<-h.ctx.Done()
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	if h.ctx.Err() != nil {
		return ErrClosed
	}
	select {
	case h.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.ctx.Done():
		return ErrClosed
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				code, err := h.uniqueCode()
				if err != nil {
					msg.Reply <- created{err: err}
					break
				}
				r := room.New(h.ctx, engine.NewState(code, msg.HostID, msg.Config, msg.Catalog), h.opts)
				h.rooms[code] = r
				msg.Reply <- created{room: r}

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // May be nil

			case RemoveRoom:
				if r := h.rooms[msg.Code]; r != nil {
					r.Close()
					delete(h.rooms, msg.Code)
				}

			case CountRooms:
				msg.Reply <- len(h.rooms)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) uniqueCode() (string, error) {
	for range 10 {
		code, err := h.newCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate room code: %w", err)
		}
		if _, taken := h.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: could not allocate a free room code", engine.ErrInvalidState)
}

func (h *Hub) shutdown() {
	for _, r := range h.rooms {
		r.Close()
	}
	clear(h.rooms)
	h.cancel()
}
