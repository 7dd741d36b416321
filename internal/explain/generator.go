// Package explain produces short natural-language explanations for
// route and departure recommendations via an OpenRouter-compatible
// chat completions API. Explanations are best-effort: the generator
// never fails, it degrades to a canned message instead.
package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/smarttime/smarttime/internal/routing"
)

const (
	// ProviderName identifies this explanation provider.
	ProviderName = "openrouter"

	// DefaultBaseURL is the OpenRouter API base URL.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultModel is the chat model used for explanations.
	DefaultModel = "x-ai/grok-4.1-fast:free"

	// DefaultTimeout bounds a single completion request.
	DefaultTimeout = 12 * time.Second
)

const (
	systemPrompt = "Eres un asistente de rutas. Responde en español de forma breve (1-2 oraciones)."

	// localFallback is returned when no API key is configured.
	localFallback = "Explicación generada localmente: se priorizó el menor tiempo y menor distancia, penalizando giros y bloqueos."

	// errorFallback is returned when the completion call fails.
	errorFallback = "Explicación automática no disponible ahora, pero la ruta seleccionada minimiza tiempo y distancia con las preferencias actuales."
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// GeneratorConfig holds configuration for the explanation generator.
type GeneratorConfig struct {
	// APIKey is the OpenRouter API key. When empty, explanations are
	// generated locally without calling the API.
	APIKey string

	// BaseURL is the API base URL (optional, defaults to OpenRouter).
	BaseURL string

	// Model is the chat model to use (optional).
	Model string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient HTTPDoer

	// Logger for generator operations.
	Logger zerolog.Logger
}

// Generator creates recommendation explanations.
type Generator struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewGenerator creates a new explanation generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	return &Generator{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// ExplainRoute explains why the recommended route was selected over
// its alternatives.
func (g *Generator) ExplainRoute(ctx context.Context, eval *routing.Evaluation) string {
	return g.generate(ctx, routeUserMessage(eval))
}

// ExplainDeparture explains why the recommended departure time was
// selected.
func (g *Generator) ExplainDeparture(ctx context.Context, search *routing.DepartureSearch) string {
	return g.generate(ctx, departureUserMessage(search))
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (g *Generator) generate(ctx context.Context, userMessage string) string {
	if g.apiKey == "" {
		return localFallback
	}

	payload := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		Temperature: 0.4,
		MaxTokens:   120,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		g.logger.Warn().Err(err).Msg("encoding completion request failed")
		return errorFallback
	}

	url := g.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		g.logger.Warn().Err(err).Msg("creating completion request failed")
		return errorFallback
	}

	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.logger.Warn().Err(err).Msg("completion request failed")
		return errorFallback
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		g.logger.Warn().Int("status", resp.StatusCode).Msg("completion returned non-200 status")
		return errorFallback
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		g.logger.Warn().Err(err).Msg("decoding completion response failed")
		return errorFallback
	}

	if len(chat.Choices) == 0 {
		return errorFallback
	}

	content := strings.TrimSpace(chat.Choices[0].Message.Content)
	if content == "" {
		return errorFallback
	}
	return content
}

// routeUserMessage builds the prompt for a route evaluation.
func routeUserMessage(eval *routing.Evaluation) string {
	if eval == nil {
		return "Explica la ruta recomendada de manera amigable."
	}

	compared := make([]string, 0, len(eval.Alternatives))
	for _, r := range eval.Alternatives {
		compared = append(compared, fmt.Sprintf("%s: %.1f min, %.1f km, score %.2f",
			r.ID, float64(r.DurationSeconds)/60, float64(r.DistanceMeters)/1000, r.Score))
	}

	return strings.Join([]string{
		fmt.Sprintf("Ruta recomendada: %s", eval.Recommended.Summary),
		fmt.Sprintf("Tiempo %.1f min, distancia %.1f km.",
			float64(eval.Recommended.DurationSeconds)/60,
			float64(eval.Recommended.DistanceMeters)/1000),
		fmt.Sprintf("Comparadas: %s", strings.Join(compared, "; ")),
		"Explica en español por qué se eligió y menciona si evita tráfico o bloqueos.",
	}, "\n")
}

// departureUserMessage builds the prompt for a departure search result.
func departureUserMessage(search *routing.DepartureSearch) string {
	if search == nil {
		return "Explica la hora de salida recomendada de manera amigable."
	}

	best := search.Recommended
	return strings.Join([]string{
		fmt.Sprintf("Busca explicar por qué salir a %s es buena idea.",
			best.DepartureTime.Format(time.RFC3339)),
		fmt.Sprintf("Duración estimada: %.1f min.", float64(best.EstimatedDurationSeconds)/60),
		fmt.Sprintf("Puntaje usado: %.2f. Penalizamos tráfico y giros.", best.Score),
		fmt.Sprintf("Ruta: %s (%.1f km).", best.Route.Summary,
			float64(best.Route.DistanceMeters)/1000),
	}, "\n")
}
