package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/auction-backend/internal/archive"
	"github.com/DoyleJ11/auction-backend/internal/catalog"
	"github.com/DoyleJ11/auction-backend/internal/engine"
	"github.com/DoyleJ11/auction-backend/internal/hub"
	"github.com/DoyleJ11/auction-backend/internal/ledger"
	"github.com/DoyleJ11/auction-backend/internal/predict"
	"github.com/DoyleJ11/auction-backend/internal/tournament"
	"github.com/DoyleJ11/auction-backend/pkg/types"
)

// ResultStore serves archived lot outcomes.
type ResultStore interface {
	ListByRoom(ctx context.Context, roomID string) ([]archive.LotResult, error)
}

type Deps struct {
	Hub         *hub.Hub
	Catalog     *catalog.Catalog
	Tournaments *tournament.Registry
	Predictor   predict.Predictor
	Results     ResultStore // nil when no archive is configured
	Defaults    engine.Config
	Rules       ledger.Rules
	Logger      *zap.Logger
}

type createRoomRequest struct {
	Mode          engine.Mode `json:"mode"`
	Budget        int64       `json:"budget"`
	BidTimeoutSec int         `json:"bid_timeout_sec"`
	MinIncrement  int64       `json:"min_increment"`

	// ItemIDs picks a subset of the catalog, in catalog order. Empty means all.
	ItemIDs []string `json:"item_ids"`
}

func CreateRoom(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host, err := userID(r)
		if err != nil {
			respondError(w, err)
			return
		}

		var req createRoomRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}

		cfg := d.Defaults
		if req.Mode != "" {
			cfg.Mode = req.Mode
		}
		if req.Budget != 0 {
			cfg.Budget = req.Budget
		}
		if req.BidTimeoutSec != 0 {
			cfg.BidTimeoutSec = req.BidTimeoutSec
		}
		if req.MinIncrement != 0 {
			cfg.MinIncrement = req.MinIncrement
		}
		if cfg.BidTimeoutSec < 0 || cfg.MinIncrement < 0 {
			respondError(w, fmt.Errorf("%w: timeout and increment cannot be negative", engine.ErrInvalidInput))
			return
		}

		items, err := selectItems(d.Catalog.Items(), req.ItemIDs)
		if err != nil {
			respondError(w, err)
			return
		}

		rm, err := d.Hub.Create(r.Context(), host, cfg, items)
		if err != nil {
			respondError(w, err)
			return
		}
		v, err := rm.State(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}

		d.Logger.Info("room created", zap.String("room", rm.ID()), zap.String("host", host), zap.Int("items", len(items)))
		respondJSON(w, http.StatusCreated, types.NewRoomSummary(rm.ID(), v.Version, v.NumClients, v.State, d.Rules))
	}
}

func selectItems(all []engine.Item, ids []string) ([]engine.Item, error) {
	if len(ids) == 0 {
		return all, nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]engine.Item, 0, len(ids))
	for _, it := range all {
		if want[it.ID] {
			out = append(out, it)
			delete(want, it.ID)
		}
	}
	for _, id := range ids {
		if want[id] {
			return nil, fmt.Errorf("%w: unknown player %s", engine.ErrInvalidInput, id)
		}
	}
	return out, nil
}

func GetRoom(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		rm, err := d.Hub.Get(r.Context(), code)
		if err != nil {
			respondError(w, err)
			return
		}
		v, err := rm.State(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, types.NewRoomSummary(code, v.Version, v.NumClients, v.State, d.Rules))
	}
}

// CloseRoom shuts a room down. Only its host may do this.
func CloseRoom(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := userID(r)
		if err != nil {
			respondError(w, err)
			return
		}
		code := chi.URLParam(r, "code")
		rm, err := d.Hub.Get(r.Context(), code)
		if err != nil {
			respondError(w, err)
			return
		}
		v, err := rm.State(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		if v.State.HostID != user {
			respondError(w, fmt.Errorf("%w: only the host can close the room", engine.ErrNotAuthorized))
			return
		}

		d.Hub.Remove(code)
		d.Logger.Info("room closed", zap.String("room", code))
		w.WriteHeader(http.StatusNoContent)
	}
}

func RoomResults(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Results == nil {
			respondError(w, errNoArchive)
			return
		}
		rows, err := d.Results.ListByRoom(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			d.Logger.Error("failed to list results", zap.Error(err))
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, rows)
	}
}

func ListPlayers(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, d.Catalog.Items())
	}
}

func Healthz(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := d.Hub.Len(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"status": "healthy",
			"rooms":  rooms,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}
