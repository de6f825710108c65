package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/DoyleJ11/auction-backend/internal/predict"
)

func Predict(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req predict.MatchRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}
		text, err := d.Predictor.Predict(r.Context(), req)
		if err != nil {
			d.Logger.Warn("prediction failed", zap.Error(err))
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"prediction": text})
	}
}

func Simulate(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req predict.SimulationRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}
		text, err := d.Predictor.Simulate(r.Context(), req)
		if err != nil {
			d.Logger.Warn("simulation failed", zap.Error(err))
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"simulation": text})
	}
}
