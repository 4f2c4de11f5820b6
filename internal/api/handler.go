// internal/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "advisor-engine/internal/common/errors"
	"advisor-engine/internal/common/logger"
	"advisor-engine/internal/common/validation"
	"advisor-engine/internal/coordinator"
	"advisor-engine/internal/engine"
	"advisor-engine/internal/models"
	"advisor-engine/internal/reveal"
)

const maxRequestBodySize = 1 << 20

// turnBody is the JSON accepted by the turn endpoints. Authentication is
// never taken from the body; it comes from the Authorization header.
type turnBody struct {
	Screen      string                 `json:"screen"`
	Input       string                 `json:"input"`
	Situational models.SituationalData `json:"situational"`
	Progress    models.ProgressData    `json:"progress"`
}

type turnResponse struct {
	*coordinator.TurnResult
	QuickChoiceLabels []string `json:"quickChoiceLabels"`
}

type Config struct {
	RevealChunkSize int
	RevealInterval  time.Duration
}

type Handler struct {
	config Config
	coord  *coordinator.Coordinator
	logger logger.Logger

	mu        sync.Mutex
	revealers map[string]*revealEntry
}

// revealEntry is dropped once no stream for the profile is running.
type revealEntry struct {
	rv    *reveal.Revealer
	users int
}

func NewHandler(cfg Config, coord *coordinator.Coordinator, log logger.Logger) *Handler {
	if cfg.RevealChunkSize <= 0 {
		cfg.RevealChunkSize = reveal.DefaultChunkSize
	}
	if cfg.RevealInterval <= 0 {
		cfg.RevealInterval = reveal.DefaultInterval
	}
	return &Handler{
		config:    cfg,
		coord:     coord,
		logger:    log.With(map[string]interface{}{"component": "api"}),
		revealers: make(map[string]*revealEntry),
	}
}

// Router builds the full HTTP surface.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Get("/ready", h.HandleReady)
	r.Handle("/metrics", promhttp.Handler())
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/profiles/{profileID}", func(r chi.Router) {
		r.Get("/turns", h.HandleRecentTurns)
		r.Post("/turns", h.HandleTurn)
		r.Post("/turns/stream", h.HandleTurnStream)
		r.Get("/context", h.HandleGetContext)
		r.Post("/context/reset", h.HandleResetContext)
		r.Get("/prompt-export", h.HandlePromptExport)
		r.Get("/suggestions", h.HandleSuggestions)
	})
}

func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.coord.Ready(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) HandleTurn(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeTurn(r)
	if err != nil {
		writeError(w, err)
		return
	}
	h.stopReveal(req.ProfileID)
	res, err := h.coord.ProcessTurn(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(res))
}

// HandleTurnStream processes the turn, then reveals the text as SSE chunk
// events. Any newer turn for the same profile cancels this reveal.
func (h *Handler) HandleTurnStream(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeTurn(r)
	if err != nil {
		writeError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, apperrors.NewInternalError(errors.New("streaming not supported")))
		return
	}

	h.stopReveal(req.ProfileID)
	res, err := h.coord.ProcessTurn(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	meta := h.present(res)
	text := meta.Text
	meta.TurnResult = withoutText(res)
	if err := writeSSE(w, "turn", meta); err != nil {
		return
	}
	flusher.Flush()

	rv := h.acquireRevealer(req.ProfileID)
	defer h.releaseRevealer(req.ProfileID, rv)

	var writeErr error
	handle := rv.Start(r.Context(), text, func(c reveal.Chunk) {
		if writeErr != nil {
			return
		}
		event := "chunk"
		if c.Final {
			event = "done"
		}
		writeErr = writeSSE(w, event, c)
		flusher.Flush()
	})
	<-handle.Done()

	if !handle.Completed() && r.Context().Err() == nil && writeErr == nil {
		_ = writeSSE(w, "canceled", map[string]string{"turnId": res.TurnID})
		flusher.Flush()
	}
}

func (h *Handler) HandleGetContext(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.coord.Context(r.Context(), chi.URLParam(r, "profileID")))
}

func (h *Handler) HandleResetContext(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "profileID")
	h.stopReveal(profileID)
	conv, err := h.coord.Reset(r.Context(), profileID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *Handler) HandlePromptExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	screen, err := engine.ParseScreen(q.Get("screen"))
	if err != nil {
		writeError(w, apperrors.NewInvalidTurnInputError(err.Error()))
		return
	}
	data := models.SituationalData{
		ProfileName:    q.Get("profileName"),
		BrandName:      q.Get("brandName"),
		Industry:       q.Get("industry"),
		Objective:      q.Get("objective"),
		TargetAudience: q.Get("targetAudience"),
		CurrentDay:     atoi(q.Get("currentDay")),
	}
	text := h.coord.ExportPrompt(r.Context(), chi.URLParam(r, "profileID"), screen, data, progressFromQuery(r))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text)
}

func (h *Handler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": h.coord.Suggestions(r.Context(), chi.URLParam(r, "profileID"), progressFromQuery(r)),
	})
}

func (h *Handler) HandleRecentTurns(w http.ResponseWriter, r *http.Request) {
	size := atoi(r.URL.Query().Get("size"))
	if size > 100 {
		size = 100
	}
	turns, err := h.coord.RecentTurns(r.Context(), chi.URLParam(r, "profileID"), size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"turns": turns})
}

func (h *Handler) decodeTurn(r *http.Request) (coordinator.TurnRequest, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize+1))
	if err != nil {
		return coordinator.TurnRequest{}, apperrors.NewInvalidTurnInputError("unreadable body")
	}
	if len(raw) > maxRequestBodySize {
		return coordinator.TurnRequest{}, apperrors.NewInvalidTurnInputError("body too large")
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return coordinator.TurnRequest{}, apperrors.NewInvalidTurnInputError("body must be a JSON object")
	}
	profileID := chi.URLParam(r, "profileID")
	doc["profileId"] = profileID
	if res := validation.ValidateTurnInput(doc); !res.Valid {
		return coordinator.TurnRequest{}, apperrors.NewInvalidTurnInputError(res.Error())
	}

	var body turnBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return coordinator.TurnRequest{}, apperrors.NewInvalidTurnInputError(err.Error())
	}
	return coordinator.TurnRequest{
		ProfileID:   profileID,
		Screen:      body.Screen,
		Input:       body.Input,
		Bearer:      r.Header.Get("Authorization"),
		Situational: body.Situational,
		Progress:    body.Progress,
	}, nil
}

func (h *Handler) present(res *coordinator.TurnResult) turnResponse {
	return turnResponse{
		TurnResult:        res,
		QuickChoiceLabels: h.coord.Engine().Templates().Messages(res.QuickChoices),
	}
}

func (h *Handler) acquireRevealer(profileID string) *reveal.Revealer {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.revealers[profileID]
	if !ok {
		e = &revealEntry{rv: reveal.NewRevealer(h.config.RevealChunkSize, h.config.RevealInterval)}
		h.revealers[profileID] = e
	}
	e.users++
	return e.rv
}

func (h *Handler) releaseRevealer(profileID string, rv *reveal.Revealer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.revealers[profileID]
	if !ok || e.rv != rv {
		return
	}
	e.users--
	if e.users <= 0 {
		delete(h.revealers, profileID)
	}
}

func (h *Handler) stopReveal(profileID string) {
	h.mu.Lock()
	e := h.revealers[profileID]
	h.mu.Unlock()
	if e != nil {
		e.rv.Stop()
	}
}

// Shutdown cancels every running reveal.
func (h *Handler) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, e := range h.revealers {
		e.rv.Stop()
		delete(h.revealers, id)
	}
}

func withoutText(res *coordinator.TurnResult) *coordinator.TurnResult {
	cp := *res
	cp.Text = ""
	return &cp
}

func progressFromQuery(r *http.Request) models.ProgressData {
	q := r.URL.Query()
	p := models.ProgressData{
		ProfileComplete: q.Get("profileComplete") == "true",
		CompassDone:     q.Get("compassDone") == "true",
		PitchDone:       q.Get("pitchDone") == "true",
		CurrentDay:      atoi(q.Get("currentDay")),
	}
	for _, s := range strings.Split(q.Get("completedDays"), ",") {
		if d := atoi(s); d > 0 {
			p.CompletedDays = append(p.CompletedDays, d)
		}
	}
	return p
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
