// internal/engine/engine.go
package engine

import (
	"advisor-engine/internal/common/logger"
	"advisor-engine/internal/models"
)

// Engine holds the immutable catalogs and thresholds. All methods are safe
// for concurrent use; none of them perform I/O.
type Engine struct {
	cfg       Config
	catalogs  map[Screen]*Catalog
	templates *TemplateRegistry
	logger    logger.Logger
}

type Option func(*Engine)

// WithCatalog replaces the catalog for its screen.
func WithCatalog(c *Catalog) Option {
	return func(e *Engine) {
		if c != nil {
			e.catalogs[c.Screen] = c
		}
	}
}

// WithTemplates replaces the response template registry.
func WithTemplates(r *TemplateRegistry) Option {
	return func(e *Engine) {
		if r != nil {
			e.templates = r
		}
	}
}

func New(cfg Config, log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg.withDefaults(),
		catalogs:  DefaultCatalogs(),
		templates: DefaultTemplates(),
		logger:    log.With(map[string]interface{}{"component": "engine"}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Config() Config { return e.cfg }

// Catalog returns the catalog for a screen, falling back to the advisor one.
func (e *Engine) Catalog(screen Screen) *Catalog {
	if c, ok := e.catalogs[screen]; ok {
		return c
	}
	return e.catalogs[ScreenAdvisor]
}

func (e *Engine) Templates() *TemplateRegistry { return e.templates }

// ClassifyContext merges the durable conversation signals with the
// situational data supplied by the caller for this turn.
type ClassifyContext struct {
	Screen       Screen
	Conversation models.ConversationContext
	Situational  models.SituationalData
}
