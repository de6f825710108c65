// Package predict asks an external text-generation service to forecast
// matches between auctioned squads. Responses are passed through as raw text.
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/DoyleJ11/auction-backend/internal/engine"
)

var (
	ErrDisabled = errors.New("prediction service is not configured")
	// ErrUpstream wraps every failure of the generation service itself.
	ErrUpstream = errors.New("prediction service failed")
)

type Player struct {
	Name   string  `json:"name"`
	Role   string  `json:"role"`
	Rating float64 `json:"rating"`
}

type Squad struct {
	Name    string   `json:"name"`
	Players []Player `json:"players"`
}

type MatchRequest struct {
	Team1     Squad  `json:"team1"`
	Team2     Squad  `json:"team2"`
	MatchType string `json:"matchType"`
}

type SimulationRequest struct {
	Teams          []Squad `json:"teams"`
	TournamentType string  `json:"tournamentType"`
}

type Predictor interface {
	Predict(ctx context.Context, req MatchRequest) (string, error)
	Simulate(ctx context.Context, req SimulationRequest) (string, error)
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

// HTTPPredictor talks to an Ollama-compatible /api/generate endpoint.
type HTTPPredictor struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewHTTPPredictor(baseURL, model string) *HTTPPredictor {
	return &HTTPPredictor{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		model:   model,
		client:  &http.Client{Timeout: 3 * time.Minute},
	}
}

func (p *HTTPPredictor) Predict(ctx context.Context, req MatchRequest) (string, error) {
	if len(req.Team1.Players) == 0 || len(req.Team2.Players) == 0 {
		return "", fmt.Errorf("%w: both teams need players", engine.ErrInvalidInput)
	}
	return p.generate(ctx, MatchPrompt(req))
}

func (p *HTTPPredictor) Simulate(ctx context.Context, req SimulationRequest) (string, error) {
	if len(req.Teams) < 2 {
		return "", fmt.Errorf("%w: a simulation needs at least two teams", engine.ErrInvalidInput)
	}
	return p.generate(ctx, SimulationPrompt(req))
}

func (p *HTTPPredictor) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: p.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	if strings.TrimSpace(parsed.Error) != "" {
		return "", fmt.Errorf("%w: %s", ErrUpstream, parsed.Error)
	}
	return strings.TrimSpace(parsed.Response), nil
}

// Disabled is used when no prediction service is configured.
type Disabled struct{}

func (Disabled) Predict(context.Context, MatchRequest) (string, error) { return "", ErrDisabled }

func (Disabled) Simulate(context.Context, SimulationRequest) (string, error) {
	return "", ErrDisabled
}

func MatchPrompt(req MatchRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze these two cricket teams and predict which team is more likely to win in a %s match:\n\n", req.MatchType)
	fmt.Fprintf(&b, "Team 1: %s\nPlayers: %s\n\n", req.Team1.Name, playerList(req.Team1.Players))
	fmt.Fprintf(&b, "Team 2: %s\nPlayers: %s\n\n", req.Team2.Name, playerList(req.Team2.Players))
	b.WriteString("Consider team balance (batsmen, bowlers, all-rounders, wicket-keepers), player ratings, recent form and match conditions.\n\n")
	b.WriteString("Provide the predicted winner, a win probability percentage, brief reasoning (2-3 sentences) and key players to watch.\n\n")
	b.WriteString("Format as JSON.")
	return b.String()
}

func SimulationPrompt(req SimulationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Simulate a %s cricket tournament with these teams:\n\n", req.TournamentType)
	for i, t := range req.Teams {
		fmt.Fprintf(&b, "Team %d: %s\nPlayers: %s\nTeam Strength: %.1f/100\n\n", i+1, t.Name, playerList(t.Players), strength(t.Players))
	}
	b.WriteString("Simulate the complete tournament and provide match results for each round, final standings, the tournament winner, best performing players and key moments or upsets.\n\n")
	b.WriteString("Format as detailed JSON with match results and analysis.")
	return b.String()
}

func playerList(players []Player) string {
	parts := make([]string, len(players))
	for i, p := range players {
		parts[i] = fmt.Sprintf("%s (%s, Rating: %g)", p.Name, p.Role, p.Rating)
	}
	return strings.Join(parts, ", ")
}

func strength(players []Player) float64 {
	if len(players) == 0 {
		return 0
	}
	var sum float64
	for _, p := range players {
		sum += p.Rating
	}
	return sum / float64(len(players))
}
