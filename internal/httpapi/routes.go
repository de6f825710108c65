package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/auction-backend/internal/predict"
	"github.com/DoyleJ11/auction-backend/internal/ws"
)

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Predictor == nil {
		d.Predictor = predict.Disabled{}
	}
	d.Logger = d.Logger.Named("http")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(d.Logger))
	r.Use(corsMiddleware)

	// Public routes
	r.Get("/healthz", Healthz(d))
	r.Get("/players", ListPlayers(d))
	r.Get("/ws", ws.Handler(d.Hub, d.Logger))

	r.Route("/rooms", func(r chi.Router) {
		r.Post("/", CreateRoom(d))
		r.Get("/{code}", GetRoom(d))
		r.Delete("/{code}", CloseRoom(d))
		r.Get("/{code}/results", RoomResults(d))
	})

	r.Route("/tournaments", func(r chi.Router) {
		r.Get("/", ListTournaments(d))
		r.Post("/", CreateTournament(d))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", GetTournament(d))
			r.Post("/join", JoinTournament(d))
			r.Post("/paid", MarkPaid(d))
			r.Get("/chat", ListChat(d))
			r.Post("/chat", PostChat(d))
			r.Post("/start", AdvanceTournament(d))
			r.Post("/import", ImportSquads(d))
			r.Post("/performance", UpdatePerformance(d))
			r.Get("/leaderboard", Leaderboard(d))
			r.Get("/squads/{user}", SquadReport(d))
		})
	})

	r.Get("/real-tournaments", ListRealTournaments(d))
	r.Post("/performance/update", RecordPerformance(d))

	r.Post("/predict", Predict(d))
	r.Post("/simulate", Simulate(d))
	return r
}
