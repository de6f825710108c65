package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/auction-backend/internal/tournament"
)

// tournamentHandler resolves {id} and the caller before running fn.
func tournamentHandler(d Deps, fn func(w http.ResponseWriter, r *http.Request, t *tournament.Tournament, user string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := d.Tournaments.Get(chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, err)
			return
		}
		user, err := userID(r)
		if err != nil {
			respondError(w, err)
			return
		}
		fn(w, r, t, user)
	}
}

func ListTournaments(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, d.Tournaments.List())
	}
}

func CreateTournament(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, err := userID(r)
		if err != nil {
			respondError(w, err)
			return
		}
		var settings tournament.Settings
		if err := decodeJSON(r, &settings); err != nil {
			respondError(w, err)
			return
		}

		t, err := d.Tournaments.Create(admin, settings)
		if err != nil {
			respondError(w, err)
			return
		}
		d.Logger.Info("tournament created", zap.String("tournament", t.ID()), zap.String("admin", admin))
		respondJSON(w, http.StatusCreated, t.View())
	}
}

func GetTournament(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := d.Tournaments.Get(chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, t.View())
	}
}

func JoinTournament(d Deps) http.HandlerFunc {
	return tournamentHandler(d, func(w http.ResponseWriter, r *http.Request, t *tournament.Tournament, user string) {
		var req struct {
			Username string `json:"username"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}
		p, err := t.Join(user, req.Username)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, p)
	})
}

func MarkPaid(d Deps) http.HandlerFunc {
	return tournamentHandler(d, func(w http.ResponseWriter, r *http.Request, t *tournament.Tournament, user string) {
		var req struct {
			UserID string `json:"userId"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}
		if err := t.MarkEntryFeePaid(user, req.UserID); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]int64{"prizePool": t.PrizePool()})
	})
}

func ListChat(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := d.Tournaments.Get(chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, t.Messages())
	}
}

func PostChat(d Deps) http.HandlerFunc {
	return tournamentHandler(d, func(w http.ResponseWriter, r *http.Request, t *tournament.Tournament, user string) {
		var req struct {
			Message string `json:"message"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}
		msg, err := t.Chat(user, req.Message)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, msg)
	})
}

// AdvanceTournament moves the tournament to its next status.
func AdvanceTournament(d Deps) http.HandlerFunc {
	return tournamentHandler(d, func(w http.ResponseWriter, r *http.Request, t *tournament.Tournament, user string) {
		status, err := t.Advance(user)
		if err != nil {
			respondError(w, err)
			return
		}
		d.Logger.Info("tournament advanced", zap.String("tournament", t.ID()), zap.String("status", string(status)))
		respondJSON(w, http.StatusOK, map[string]tournament.Status{"status": status})
	})
}

func UpdatePerformance(d Deps) http.HandlerFunc {
	return tournamentHandler(d, func(w http.ResponseWriter, r *http.Request, t *tournament.Tournament, user string) {
		var req struct {
			PlayerID    string                 `json:"playerId"`
			Performance tournament.Performance `json:"performance"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}
		board, err := t.UpdatePerformance(user, req.PlayerID, req.Performance)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, board)
	})
}

func ListRealTournaments(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, tournament.RealTournaments())
	}
}

// RecordPerformance is the feed-style variant of UpdatePerformance: the
// tournament is named in the body rather than the path.
func RecordPerformance(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := userID(r)
		if err != nil {
			respondError(w, err)
			return
		}
		var req struct {
			TournamentID string                 `json:"tournamentId"`
			PlayerID     string                 `json:"playerId"`
			Performance  tournament.Performance `json:"performance"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}
		t, err := d.Tournaments.Get(req.TournamentID)
		if err != nil {
			respondError(w, err)
			return
		}
		board, err := t.UpdatePerformance(user, req.PlayerID, req.Performance)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, board)
	}
}

func Leaderboard(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := d.Tournaments.Get(chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, t.Leaderboard())
	}
}

// ImportSquads copies a completed auction room's acquisitions into the
// squads of participants who owned teams there.
func ImportSquads(d Deps) http.HandlerFunc {
	return tournamentHandler(d, func(w http.ResponseWriter, r *http.Request, t *tournament.Tournament, user string) {
		var req struct {
			Room string `json:"room"`
		}
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}
		rm, err := d.Hub.Get(r.Context(), req.Room)
		if err != nil {
			respondError(w, err)
			return
		}
		v, err := rm.State(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		n, err := t.ImportAuction(user, v.State)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]int{"imported": n})
	})
}

func SquadReport(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := d.Tournaments.Get(chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, err)
			return
		}
		report, err := t.SquadReport(chi.URLParam(r, "user"))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, report)
	}
}
