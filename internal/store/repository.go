// internal/store/repository.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "advisor-engine/internal/common/errors"
	"advisor-engine/internal/common/logger"
	"advisor-engine/internal/models"
)

const (
	contextSuffix  = "-conversation-context"
	historySuffix  = "-chat-history"
	lastTurnSuffix = "-last-turn"
)

func ContextKey(profileID string) string  { return profileID + contextSuffix }
func HistoryKey(profileID string) string  { return profileID + historySuffix }
func LastTurnKey(profileID string) string { return profileID + lastTurnSuffix }

// ContextRepository maps profile ids onto namespaced store keys and decodes
// the stored blobs. Missing or corrupt data always yields the default value.
type ContextRepository struct {
	store      Store
	maxHistory int
	logger     logger.Logger
}

func NewContextRepository(s Store, maxHistory int, log logger.Logger) *ContextRepository {
	return &ContextRepository{
		store:      s,
		maxHistory: maxHistory,
		logger:     log.With(map[string]interface{}{"component": "store"}),
	}
}

// LoadContext never fails the caller: a store error is returned alongside the
// default context so it can be logged.
func (r *ContextRepository) LoadContext(ctx context.Context, profileID string) (models.ConversationContext, error) {
	key := ContextKey(profileID)
	raw, err := r.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return models.DefaultConversationContext(), nil
	}
	if err != nil {
		return models.DefaultConversationContext(), apperrors.NewStoreReadFailedError(key, err)
	}

	conv, err := decodeContext(raw)
	if err != nil {
		r.logger.Warn("discarding corrupt conversation context", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return models.DefaultConversationContext(), nil
	}
	return conv, nil
}

func (r *ContextRepository) SaveContext(ctx context.Context, profileID string, conv models.ConversationContext) error {
	if conv.Topics == nil {
		conv.Topics = []string{}
	}
	raw, err := json.Marshal(conv)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	key := ContextKey(profileID)
	if err := r.store.Set(ctx, key, raw); err != nil {
		return apperrors.NewStoreWriteFailedError(key, err)
	}
	return nil
}

// ResetContext overwrites the stored context with the default.
func (r *ContextRepository) ResetContext(ctx context.Context, profileID string) (models.ConversationContext, error) {
	def := models.DefaultConversationContext()
	return def, r.SaveContext(ctx, profileID, def)
}

func (r *ContextRepository) LoadHistory(ctx context.Context, profileID string) (models.ChatHistory, error) {
	key := HistoryKey(profileID)
	raw, err := r.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return models.ChatHistory{Messages: []models.Message{}}, nil
	}
	if err != nil {
		return models.ChatHistory{Messages: []models.Message{}}, apperrors.NewStoreReadFailedError(key, err)
	}

	var h models.ChatHistory
	if err := json.Unmarshal(raw, &h); err != nil {
		r.logger.Warn("discarding corrupt chat history", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return models.ChatHistory{Messages: []models.Message{}}, nil
	}
	if h.Messages == nil {
		h.Messages = []models.Message{}
	}
	return h, nil
}

// AppendHistory loads, appends and writes back the bounded history. A failed
// read leaves the stored history untouched.
func (r *ContextRepository) AppendHistory(ctx context.Context, profileID string, msgs ...models.Message) (models.ChatHistory, error) {
	h, err := r.LoadHistory(ctx, profileID)
	if err != nil {
		return h, err
	}
	h = h.Append(r.maxHistory, msgs...)

	raw, err := json.Marshal(h)
	if err != nil {
		return h, apperrors.NewInternalError(err)
	}
	key := HistoryKey(profileID)
	if err := r.store.Set(ctx, key, raw); err != nil {
		return h, apperrors.NewStoreWriteFailedError(key, err)
	}
	return h, nil
}

// LoadLastTurn decodes the record of the profile's most recent turn into v.
// It reports false when none is stored or the blob is unreadable.
func (r *ContextRepository) LoadLastTurn(ctx context.Context, profileID string, v interface{}) (bool, error) {
	key := LastTurnKey(profileID)
	raw, err := r.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewStoreReadFailedError(key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		r.logger.Warn("discarding corrupt last turn", map[string]interface{}{"key": key, "error": err.Error()})
		return false, nil
	}
	return true, nil
}

func (r *ContextRepository) SaveLastTurn(ctx context.Context, profileID string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	key := LastTurnKey(profileID)
	if err := r.store.Set(ctx, key, raw); err != nil {
		return apperrors.NewStoreWriteFailedError(key, err)
	}
	return nil
}

func (r *ContextRepository) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

func decodeContext(raw []byte) (models.ConversationContext, error) {
	var conv models.ConversationContext
	if err := json.Unmarshal(raw, &conv); err != nil {
		return conv, err
	}
	if conv.MessageCount < 0 || conv.FollowUpCount < 0 {
		return conv, fmt.Errorf("negative counters")
	}
	if conv.Topics == nil {
		conv.Topics = []string{}
	}
	return conv, nil
}
