// internal/coordinator/coordinator.go
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"advisor-engine/internal/archive"
	"advisor-engine/internal/common/auth"
	apperrors "advisor-engine/internal/common/errors"
	"advisor-engine/internal/common/logger"
	"advisor-engine/internal/common/metrics"
	"advisor-engine/internal/common/observability"
	"advisor-engine/internal/engine"
	"advisor-engine/internal/escalation"
	"advisor-engine/internal/genai"
	"advisor-engine/internal/models"
	"advisor-engine/internal/store"
)

type Source string

const (
	SourceRemote   Source = "remote"
	SourceLocal    Source = "local"
	SourceFallback Source = "fallback"
)

const (
	fallbackReasonAmbiguous       = "ambiguous"
	fallbackReasonAIUnavailable   = "ai_unavailable"
	fallbackReasonUnauthenticated = "unauthenticated"
	fallbackReasonAIDisabled      = "ai_disabled"
)

// persistTimeout bounds the writes made after the answer is known. They run
// detached from the caller's cancellation.
const persistTimeout = 5 * time.Second

// TurnRequest is one user message. A caller that may redeliver the same turn
// sets TurnID; a repeat of the profile's latest turn id returns the recorded
// result instead of running again.
type TurnRequest struct {
	TurnID        string                 `json:"turnId,omitempty"`
	ProfileID     string                 `json:"profileId"`
	Screen        string                 `json:"screen"`
	Input         string                 `json:"input"`
	Authenticated bool                   `json:"authenticated"`
	Bearer        string                 `json:"-"`
	Situational   models.SituationalData `json:"situational"`
	Progress      models.ProgressData    `json:"progress"`
}

type TurnResult struct {
	TurnID       string                     `json:"turnId"`
	Sequence     int                        `json:"sequence"`
	Intent       engine.Intent              `json:"intent"`
	Intents      []engine.Intent            `json:"intents"`
	Entities     engine.Entities            `json:"entities"`
	Text         string                     `json:"text"`
	Source       Source                     `json:"source"`
	QuickChoices []string                   `json:"quickChoices"`
	Effects      []engine.Effect            `json:"effects"`
	Stuck        bool                       `json:"stuck"`
	Confidence   float64                    `json:"confidence"`
	Context      models.ConversationContext `json:"context"`
}

type Config struct {
	BookingURL string
}

// Coordinator runs the per-turn pipeline. The local engine always runs
// first; the remote answer only replaces the reply text.
type Coordinator struct {
	config    Config
	engine    *engine.Engine
	repo      *store.ContextRepository
	generator genai.Generator
	verifier  auth.Verifier
	archiver  archive.Archiver
	notifier  escalation.Notifier
	obs       *observability.Observability
	tracer    trace.Tracer
	seq       *sequencer
	logger    logger.Logger
	now       func() time.Time
}

type Option func(*Coordinator)

// WithGenerator enables the remote path. Without it every turn is local.
func WithGenerator(g genai.Generator) Option {
	return func(c *Coordinator) { c.generator = g }
}

// WithVerifier resolves bearer tokens. Without it TurnRequest.Authenticated
// is trusted as given.
func WithVerifier(v auth.Verifier) Option {
	return func(c *Coordinator) { c.verifier = v }
}

func WithArchiver(a archive.Archiver) Option {
	return func(c *Coordinator) {
		if a != nil {
			c.archiver = a
		}
	}
}

func WithNotifier(n escalation.Notifier) Option {
	return func(c *Coordinator) {
		if n != nil {
			c.notifier = n
		}
	}
}

func WithObservability(o *observability.Observability) Option {
	return func(c *Coordinator) {
		c.obs = o
		if o != nil {
			c.tracer = o.Tracer()
		}
	}
}

func New(cfg Config, eng *engine.Engine, repo *store.ContextRepository, log logger.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		config:   cfg,
		engine:   eng,
		repo:     repo,
		archiver: archive.Nop{},
		notifier: escalation.Nop{},
		tracer:   otel.Tracer("advisor-engine/coordinator"),
		seq:      newSequencer(),
		logger:   log.With(map[string]interface{}{"component": "coordinator"}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) Engine() *engine.Engine { return c.engine }

// ProcessTurn answers one user message. It fails only on INVALID_TURN_INPUT
// or when ctx ends while the turn is still queued; every other failure
// degrades to a local reply.
func (c *Coordinator) ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	screen, err := c.validate(req)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "coordinator.ProcessTurn", trace.WithAttributes(
		attribute.String("profile.id", req.ProfileID),
		attribute.String("screen", string(screen)),
	))
	defer span.End()

	release, err := c.seq.acquire(ctx, req.ProfileID)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Errorf("turn abandoned while queued: %w", err))
	}
	defer release()

	start := c.now()
	turnID := req.TurnID
	if turnID == "" {
		turnID = uuid.NewString()
	}
	log := c.logger.With(map[string]interface{}{"profileId": req.ProfileID, "turnId": turnID})

	// A context that could not be read is answered from the default but never
	// written back, so the stored count cannot go down.
	persist := true
	conv, err := c.repo.LoadContext(ctx, req.ProfileID)
	if err != nil {
		persist = false
		log.Warn("conversation context unavailable, answering without persisting", map[string]interface{}{"error": err.Error()})
	}
	if persist && req.TurnID != "" {
		if prev, ok := c.replay(ctx, log, req); ok {
			return prev, nil
		}
	}

	cc := engine.ClassifyContext{Screen: screen, Conversation: conv, Situational: req.Situational}
	intents := c.engine.Classify(req.Input, cc)
	top := engine.Top(intents)
	entities := engine.ExtractEntities(req.Input, req.Situational)

	next := c.engine.UpdateConversationContext(conv, req.Input, top, entities)
	c.engine.LearnFromInteraction(next, top)
	stuck := c.engine.DetectStuckUser(next)
	score := c.engine.ScoreResponse(top.Intent, next, req.Situational)

	var reply engine.Reply
	source := SourceLocal
	switch {
	case stuck.ShouldIntervene:
		reply = c.engine.StuckReply(stuck.Topic)
		metrics.StuckInterventions.WithLabelValues(string(stuck.Topic)).Inc()
		c.notify(ctx, log, escalation.Event{
			TurnID: turnID, ProfileID: req.ProfileID, Screen: string(screen),
			Reason: escalation.ReasonStuck, Intent: string(stuck.Topic), Input: req.Input,
		})
	case c.engine.IsAmbiguous(intents):
		reply = c.engine.FallbackReply(c.engine.GenerateSmartFallback(req.Input, cc))
		source = SourceFallback
		metrics.FallbacksTotal.WithLabelValues(fallbackReasonAmbiguous).Inc()
	default:
		reply = c.engine.Respond(req.Input, cc, top.Intent, engine.TemplateData{
			Situational:  req.Situational,
			Entities:     entities,
			Conversation: next,
			Progress:     req.Progress,
		})
		reply = c.engine.WithDisclaimer(reply, score)
	}

	history, err := c.repo.LoadHistory(ctx, req.ProfileID)
	if err != nil {
		log.Warn("chat history unavailable", map[string]interface{}{"error": err.Error()})
	}

	if !stuck.ShouldIntervene {
		text, remoteOK, reason := c.remote(ctx, log, req, screen, top, history)
		if remoteOK {
			reply.Text = text
			source = SourceRemote
		} else {
			reply.Text = c.withEscalation(reply.Text)
			metrics.FallbacksTotal.WithLabelValues(reason).Inc()
			if reason == fallbackReasonAIUnavailable {
				c.notify(ctx, log, escalation.Event{
					TurnID: turnID, ProfileID: req.ProfileID, Screen: string(screen),
					Reason: escalation.ReasonAIUnavailable, Intent: string(top.Intent), Input: req.Input,
				})
			}
		}
	}

	result := &TurnResult{
		TurnID:       turnID,
		Sequence:     next.MessageCount,
		Intent:       top,
		Intents:      c.engine.ClassifyAll(req.Input, cc),
		Entities:     entities,
		Text:         reply.Text,
		Source:       source,
		QuickChoices: nonNil(reply.QuickChoices),
		Effects:      reply.Effects,
		Stuck:        stuck.ShouldIntervene,
		Confidence:   score.Confidence,
		Context:      next,
	}
	if result.Effects == nil {
		result.Effects = []engine.Effect{}
	}

	pctx, cancel := c.detached(ctx)
	defer cancel()
	ts := c.now()
	if persist {
		c.persist(pctx, log, req, result, ts)
	}

	if err := c.archiver.Archive(pctx, archive.TurnRecord{
		TurnID:     turnID,
		ProfileID:  req.ProfileID,
		Screen:     string(screen),
		Sequence:   result.Sequence,
		Input:      req.Input,
		Intent:     string(top.Intent),
		Score:      top.Score,
		Source:     string(source),
		Text:       result.Text,
		Stuck:      result.Stuck,
		Confidence: result.Confidence,
		CreatedAt:  ts,
	}); err != nil {
		log.Warn("turn archive failed", map[string]interface{}{"error": err.Error()})
	}

	metrics.TurnsTotal.WithLabelValues(string(screen), string(source)).Inc()
	c.obs.RecordTurn(ctx, c.now().Sub(start), string(screen), string(source))
	span.SetAttributes(
		attribute.String("turn.intent", string(top.Intent)),
		attribute.String("turn.source", string(source)),
		attribute.Int("turn.sequence", result.Sequence),
	)

	log.Info("turn processed", map[string]interface{}{
		"intent":   top.Intent,
		"score":    top.Score,
		"source":   source,
		"sequence": result.Sequence,
		"stuck":    result.Stuck,
	})
	return result, nil
}

// persist records the turn: context first, then history, then the replay
// marker.
func (c *Coordinator) persist(ctx context.Context, log logger.Logger, req TurnRequest, result *TurnResult, ts time.Time) {
	if err := c.repo.SaveContext(ctx, req.ProfileID, result.Context); err != nil {
		log.Error("failed to persist conversation context", map[string]interface{}{"error": err.Error()})
		return
	}
	if _, err := c.repo.AppendHistory(ctx, req.ProfileID,
		models.Message{Role: models.RoleUser, Content: req.Input, CreatedAt: ts},
		models.Message{Role: models.RoleAssistant, Content: result.Text, CreatedAt: ts},
	); err != nil {
		log.Error("failed to append chat history", map[string]interface{}{"error": err.Error()})
	}
	if req.TurnID != "" {
		if err := c.repo.SaveLastTurn(ctx, req.ProfileID, result); err != nil {
			log.Warn("failed to record turn for replay", map[string]interface{}{"error": err.Error()})
		}
	}
}

// replay returns the recorded result when req repeats the latest turn.
func (c *Coordinator) replay(ctx context.Context, log logger.Logger, req TurnRequest) (*TurnResult, bool) {
	var prev TurnResult
	ok, err := c.repo.LoadLastTurn(ctx, req.ProfileID, &prev)
	if err != nil {
		log.Warn("last turn unavailable, processing again", map[string]interface{}{"error": err.Error()})
		return nil, false
	}
	if !ok || prev.TurnID != req.TurnID {
		return nil, false
	}
	log.Info("turn already processed, returning recorded result", map[string]interface{}{"sequence": prev.Sequence})
	return &prev, true
}

func (c *Coordinator) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}

func (c *Coordinator) validate(req TurnRequest) (engine.Screen, error) {
	if strings.TrimSpace(req.ProfileID) == "" {
		return "", apperrors.NewInvalidTurnInputError("profileId is required")
	}
	screen, err := engine.ParseScreen(req.Screen)
	if err != nil {
		return "", apperrors.NewInvalidTurnInputError(err.Error())
	}
	return screen, nil
}

// remote attempts the hosted answer. It reports the fallback reason when the
// local text must stand.
func (c *Coordinator) remote(ctx context.Context, log logger.Logger, req TurnRequest, screen engine.Screen, top engine.Intent, history models.ChatHistory) (string, bool, string) {
	if !c.authenticated(ctx, log, req) {
		return "", false, fallbackReasonUnauthenticated
	}
	if c.generator == nil {
		return "", false, fallbackReasonAIDisabled
	}

	msgs := make([]genai.Message, 0, len(history.Messages)+1)
	for _, m := range history.Messages {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		msgs = append(msgs, genai.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, genai.Message{Role: models.RoleUser, Content: req.Input})

	fields := req.Situational.Fields()
	fields["screen"] = string(screen)
	fields["intent"] = string(top.Intent)

	text, err := c.generator.Generate(ctx, genai.Request{Messages: msgs, Context: fields})
	if err != nil {
		if !errors.Is(err, genai.ErrAIUnavailable) {
			err = apperrors.NewAIUnavailableError(err)
		}
		log.Warn("remote AI unavailable, using local reply", map[string]interface{}{"error": err.Error()})
		return "", false, fallbackReasonAIUnavailable
	}
	return text, true, ""
}

func (c *Coordinator) authenticated(ctx context.Context, log logger.Logger, req TurnRequest) bool {
	if c.verifier == nil {
		return req.Authenticated
	}
	if req.Bearer == "" {
		return req.Authenticated
	}
	s, err := c.verifier.Verify(ctx, req.Bearer)
	if err != nil {
		log.Warn("session verification failed, treating as unauthenticated", map[string]interface{}{"error": err.Error()})
		return false
	}
	return s.Authenticated
}

func (c *Coordinator) withEscalation(text string) string {
	note := c.engine.Templates().Message("escalation.unavailable")
	if c.config.BookingURL != "" {
		note += " " + c.config.BookingURL
	}
	return strings.TrimSpace(text + "\n\n" + note)
}

func (c *Coordinator) notify(ctx context.Context, log logger.Logger, ev escalation.Event) {
	ev.OccurredAt = c.now().UTC()
	ctx, cancel := c.detached(ctx)
	defer cancel()
	if err := c.notifier.Notify(ctx, ev); err != nil {
		log.Warn("escalation notification failed", map[string]interface{}{
			"reason": ev.Reason,
			"error":  err.Error(),
		})
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
