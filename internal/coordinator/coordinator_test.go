// internal/coordinator/coordinator_test.go
package coordinator

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"advisor-engine/internal/archive"
	"advisor-engine/internal/common/auth"
	"advisor-engine/internal/common/errors"
	"advisor-engine/internal/common/logger"
	"advisor-engine/internal/engine"
	"advisor-engine/internal/escalation"
	"advisor-engine/internal/genai"
	"advisor-engine/internal/models"
	"advisor-engine/internal/store"
)

const bookingURL = "https://book.example.com/advisor"

// ==========================
// Test doubles
// ==========================

type fakeGenerator struct {
	mu       sync.Mutex
	calls    int
	requests []genai.Request
	text     string
	err      error
	delay    time.Duration
}

func (f *fakeGenerator) Generate(ctx context.Context, req genai.Request) (string, error) {
	f.mu.Lock()
	f.calls++
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []escalation.Event
}

func (f *fakeNotifier) Notify(_ context.Context, ev escalation.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

type fakeArchiver struct {
	mu      sync.Mutex
	records []archive.TurnRecord
	err     error
}

func (f *fakeArchiver) Archive(_ context.Context, rec archive.TurnRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return f.err
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) { return nil, stderrors.New("connection refused") }
func (failingStore) Set(context.Context, string, []byte) error    { return stderrors.New("connection refused") }
func (failingStore) Ping(context.Context) error                   { return stderrors.New("connection refused") }

type testEnv struct {
	coord    *Coordinator
	repo     *store.ContextRepository
	gen      *fakeGenerator
	notifier *fakeNotifier
	archiver *fakeArchiver
}

func newTestEnv(t *testing.T, s store.Store, opts ...Option) *testEnv {
	t.Helper()
	log := logger.NewTestLogger(t)
	if s == nil {
		s = store.NewMemoryStore()
	}
	env := &testEnv{
		repo:     store.NewContextRepository(s, 50, log),
		gen:      &fakeGenerator{text: "Here is a tailored answer."},
		notifier: &fakeNotifier{},
		archiver: &fakeArchiver{},
	}
	base := []Option{
		WithGenerator(env.gen),
		WithNotifier(env.notifier),
		WithArchiver(env.archiver),
	}
	env.coord = New(Config{BookingURL: bookingURL}, engine.New(engine.DefaultConfig(), log), env.repo, log, append(base, opts...)...)
	return env
}

func turn(profile, screen, input string, authed bool) TurnRequest {
	return TurnRequest{ProfileID: profile, Screen: screen, Input: input, Authenticated: authed}
}

// ==========================
// Local path
// ==========================

func TestProcessTurn_GreetingUnauthenticated(t *testing.T) {
	env := newTestEnv(t, nil)

	res, err := env.coord.ProcessTurn(context.Background(), turn("p-1", "advisor", "hi", false))
	require.NoError(t, err)

	assert.Equal(t, engine.IntentGreeting, res.Intent.Intent)
	assert.Equal(t, 1, res.Sequence)
	assert.Equal(t, SourceLocal, res.Source)
	assert.Contains(t, res.Text, bookingURL)
	assert.Equal(t, "greeting", res.Context.LastIntent)
	assert.NotEmpty(t, res.TurnID)
	assert.Zero(t, env.gen.callCount())

	stored, err := env.repo.LoadContext(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, res.Context, stored)

	hist, err := env.repo.LoadHistory(context.Background(), "p-1")
	require.NoError(t, err)
	require.Len(t, hist.Messages, 2)
	assert.Equal(t, models.RoleUser, hist.Messages[0].Role)
	assert.Equal(t, res.Text, hist.Messages[1].Content)
}

func TestProcessTurn_AmbiguousUsesSmartFallback(t *testing.T) {
	env := newTestEnv(t, nil)

	res, err := env.coord.ProcessTurn(context.Background(), turn("p-1", "advisor", "qwerty zxcv", false))
	require.NoError(t, err)

	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, engine.IntentUnknown, res.Intent.Intent)
	assert.GreaterOrEqual(t, len(res.QuickChoices), 3)
	assert.Equal(t, 1, res.Sequence)
}

func TestProcessTurn_EmptyInput(t *testing.T) {
	env := newTestEnv(t, nil)

	res, err := env.coord.ProcessTurn(context.Background(), turn("p-1", "program", "", true))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(res.QuickChoices), 3)
	assert.Equal(t, 1, res.Sequence)
}

// ==========================
// Remote path
// ==========================

func TestProcessTurn_RemoteSuccessKeepsLocalEffects(t *testing.T) {
	env := newTestEnv(t, nil)

	res, err := env.coord.ProcessTurn(context.Background(), turn("p-1", "program", "show me the tactic", true))
	require.NoError(t, err)

	assert.Equal(t, SourceRemote, res.Source)
	assert.Equal(t, "Here is a tailored answer.", res.Text)
	assert.Equal(t, engine.IntentShowTactic, res.Intent.Intent)
	assert.Contains(t, res.Effects, engine.Effect{Kind: engine.EffectSwitchTab, Value: "tactic"})
	assert.NotContains(t, res.Text, bookingURL)

	require.Equal(t, 1, env.gen.callCount())
	req := env.gen.requests[0]
	require.NotEmpty(t, req.Messages)
	assert.Equal(t, "show me the tactic", req.Messages[len(req.Messages)-1].Content)
	assert.Equal(t, "program", req.Context["screen"])
	assert.Equal(t, "showTactic", req.Context["intent"])
}

func TestProcessTurn_RemoteFailureFallsBackWithEscalation(t *testing.T) {
	env := newTestEnv(t, nil)
	env.gen.err = fmt.Errorf("%w: boom", genai.ErrAIUnavailable)

	res, err := env.coord.ProcessTurn(context.Background(), turn("p-1", "advisor", "help me with my pitch", true))
	require.NoError(t, err)

	assert.Equal(t, SourceLocal, res.Source)
	assert.Contains(t, res.Text, bookingURL)
	assert.Equal(t, 1, res.Context.MessageCount)
	assert.Equal(t, 1, env.gen.callCount())

	require.Len(t, env.notifier.events, 1)
	assert.Equal(t, escalation.ReasonAIUnavailable, env.notifier.events[0].Reason)
	assert.Equal(t, "p-1", env.notifier.events[0].ProfileID)
}

func TestProcessTurn_RemoteDisabled(t *testing.T) {
	env := newTestEnv(t, nil, WithGenerator(nil))

	res, err := env.coord.ProcessTurn(context.Background(), turn("p-1", "advisor", "hi", true))
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, res.Source)
	assert.Contains(t, res.Text, bookingURL)
	assert.Empty(t, env.notifier.events)
}

func TestProcessTurn_VerifierGatesRemote(t *testing.T) {
	env := newTestEnv(t, nil, WithVerifier(auth.StaticVerifier{}))

	req := turn("p-1", "advisor", "hi", false)
	req.Bearer = "Bearer token"
	res, err := env.coord.ProcessTurn(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, res.Source)

	req.Bearer = " "
	res, err = env.coord.ProcessTurn(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, res.Source)
}

// ==========================
// Stuck detection
// ==========================

func TestProcessTurn_StuckShortCircuitsRemote(t *testing.T) {
	env := newTestEnv(t, nil)

	var res *TurnResult
	var err error
	for i := 0; i < 4; i++ {
		res, err = env.coord.ProcessTurn(context.Background(), turn("p-1", "advisor", "pitch", true))
		require.NoError(t, err)
		if i < 3 {
			assert.False(t, res.Stuck, "turn %d", i+1)
		}
	}

	assert.True(t, res.Stuck)
	assert.Equal(t, 4, res.Sequence)
	assert.Equal(t, SourceLocal, res.Source)
	assert.Contains(t, res.QuickChoices, engine.SuggestTalkToHuman)
	assert.Equal(t, 3, env.gen.callCount())

	require.Len(t, env.notifier.events, 1)
	assert.Equal(t, escalation.ReasonStuck, env.notifier.events[0].Reason)
	assert.Equal(t, "pitchHelp", env.notifier.events[0].Intent)
}

// ==========================
// Failure handling
// ==========================

func TestProcessTurn_InvalidInput(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		req  TurnRequest
	}{
		{"missing profile", turn("", "advisor", "hi", false)},
		{"blank profile", turn("  ", "advisor", "hi", false)},
		{"unknown screen", turn("p-1", "settings", "hi", false)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := env.coord.ProcessTurn(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, errors.ErrCodeInvalidTurnInput, errors.AsStandard(err).Code)
		})
	}
}

func TestProcessTurn_StoreDownStillAnswers(t *testing.T) {
	env := newTestEnv(t, failingStore{})

	res, err := env.coord.ProcessTurn(context.Background(), turn("p-1", "advisor", "hi", false))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sequence)
	assert.NotEmpty(t, res.Text)
	assert.Error(t, env.coord.Ready(context.Background()))
}

func TestProcessTurn_ArchiveFailureIgnored(t *testing.T) {
	env := newTestEnv(t, nil)
	env.archiver.err = stderrors.New("es down")

	res, err := env.coord.ProcessTurn(context.Background(), turn("p-1", "advisor", "hi", false))
	require.NoError(t, err)
	require.Len(t, env.archiver.records, 1)
	assert.Equal(t, res.TurnID, env.archiver.records[0].TurnID)
	assert.Equal(t, "local", env.archiver.records[0].Source)
}

// ==========================
// Ordering
// ==========================

func TestProcessTurn_SameProfileSerialized(t *testing.T) {
	env := newTestEnv(t, nil)
	env.gen.delay = 5 * time.Millisecond

	const n = 8
	var wg sync.WaitGroup
	seqs := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := env.coord.ProcessTurn(context.Background(), turn("p-1", "advisor", "what next", true))
			if assert.NoError(t, err) {
				seqs[i] = res.Sequence
			}
		}(i)
	}
	wg.Wait()

	sort.Ints(seqs)
	for i, s := range seqs {
		assert.Equal(t, i+1, s)
	}
	assert.Equal(t, n, env.coord.Context(context.Background(), "p-1").MessageCount)
	assert.Zero(t, env.coord.seq.active())
}

func TestProcessTurn_ProfilesIndependent(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.coord.ProcessTurn(context.Background(), turn("a", "advisor", "hi", false))
	require.NoError(t, err)
	res, err := env.coord.ProcessTurn(context.Background(), turn("b", "advisor", "hi", false))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sequence)
}

// ==========================
// Queries
// ==========================

func TestReset(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.coord.ProcessTurn(context.Background(), turn("p-1", "advisor", "hi", false))
	require.NoError(t, err)

	conv, err := env.coord.Reset(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultConversationContext(), conv)
	assert.Equal(t, 0, env.coord.Context(context.Background(), "p-1").MessageCount)
}

func TestSuggestions(t *testing.T) {
	env := newTestEnv(t, nil)

	views := env.coord.Suggestions(context.Background(), "p-1", models.ProgressData{})
	require.NotEmpty(t, views)
	assert.Equal(t, engine.SuggestCompleteProfile, views[0].Key)
	assert.NotEqual(t, views[0].Key, views[0].Text)
}

func TestExportPrompt(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.coord.ProcessTurn(context.Background(), turn("p-1", "advisor", "hi", false))
	require.NoError(t, err)

	out := env.coord.ExportPrompt(context.Background(), "p-1", engine.ScreenAdvisor,
		models.SituationalData{BrandName: "Acme"}, models.ProgressData{})
	assert.Contains(t, out, "Acme")
	assert.True(t, strings.Contains(out, "User: hi"))
}

type searchableArchiver struct {
	fakeArchiver
}

func (s *searchableArchiver) Recent(_ context.Context, profileID string, size int) ([]archive.TurnRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []archive.TurnRecord
	for i := len(s.records) - 1; i >= 0 && len(out) < size; i-- {
		if s.records[i].ProfileID == profileID {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}

func TestRecentTurns(t *testing.T) {
	arch := &searchableArchiver{}
	env := newTestEnv(t, nil, WithArchiver(arch))
	for _, in := range []string{"hi", "check my profile", "compass"} {
		_, err := env.coord.ProcessTurn(context.Background(), turn("p-1", "advisor", in, false))
		require.NoError(t, err)
	}

	recs, err := env.coord.RecentTurns(context.Background(), "p-1", 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "compass", recs[0].Input)
	assert.Equal(t, 3, recs[0].Sequence)
}

func TestRecentTurns_NotSearchable(t *testing.T) {
	env := newTestEnv(t, nil)

	recs, err := env.coord.RecentTurns(context.Background(), "p-1", 5)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

// ==========================
// Persistence failure paths
// ==========================

// flakyStore fails the next reads of one key, then behaves like memory.
type flakyStore struct {
	*store.MemoryStore
	mu        sync.Mutex
	key       string
	failReads int
}

func (f *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	if key == f.key && f.failReads > 0 {
		f.failReads--
		f.mu.Unlock()
		return nil, stderrors.New("read timeout")
	}
	f.mu.Unlock()
	return f.MemoryStore.Get(ctx, key)
}

// cancelingGenerator simulates a client that leaves during the remote call.
type cancelingGenerator struct {
	cancel context.CancelFunc
}

func (g cancelingGenerator) Generate(ctx context.Context, _ genai.Request) (string, error) {
	g.cancel()
	<-ctx.Done()
	return "", fmt.Errorf("%w: %w", genai.ErrAIUnavailable, ctx.Err())
}

func TestProcessTurn_ContextReadFailureKeepsStoredContext(t *testing.T) {
	ctx := context.Background()
	fs := &flakyStore{MemoryStore: store.NewMemoryStore(), key: store.ContextKey("p-1")}
	env := newTestEnv(t, fs)

	require.NoError(t, env.repo.SaveContext(ctx, "p-1", models.ConversationContext{
		MessageCount: 5, LastIntent: "pitchHelp", Topics: []string{"greeting", "pitchHelp"},
	}))
	_, err := env.repo.AppendHistory(ctx, "p-1",
		models.Message{Role: models.RoleUser, Content: "pitch"},
		models.Message{Role: models.RoleAssistant, Content: "Let's work on it."},
	)
	require.NoError(t, err)

	fs.failReads = 1
	res, err := env.coord.ProcessTurn(ctx, turn("p-1", "advisor", "hi", false))
	require.NoError(t, err)
	assert.NotEmpty(t, res.Text)

	stored, err := env.repo.LoadContext(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, 5, stored.MessageCount)
	assert.Equal(t, []string{"greeting", "pitchHelp"}, stored.Topics)
	history, err := env.repo.LoadHistory(ctx, "p-1")
	require.NoError(t, err)
	assert.Len(t, history.Messages, 2)

	res, err = env.coord.ProcessTurn(ctx, turn("p-1", "advisor", "hi", false))
	require.NoError(t, err)
	assert.Equal(t, 6, res.Sequence)
}

func TestProcessTurn_ClientGoneDuringRemoteStillPersists(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env := newTestEnv(t, nil, WithGenerator(cancelingGenerator{cancel: cancel}))

	res, err := env.coord.ProcessTurn(ctx, turn("p-1", "advisor", "hi", true))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sequence)
	assert.Contains(t, res.Text, bookingURL)

	stored, err := env.repo.LoadContext(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.MessageCount)
	history, err := env.repo.LoadHistory(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Len(t, history.Messages, 2)
	require.Len(t, env.archiver.records, 1)
	require.Len(t, env.notifier.events, 1)
	assert.Equal(t, escalation.ReasonAIUnavailable, env.notifier.events[0].Reason)
}

func TestProcessTurn_CanceledWhileQueued(t *testing.T) {
	env := newTestEnv(t, nil)
	release, err := env.coord.seq.acquire(context.Background(), "p-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res, err := env.coord.ProcessTurn(ctx, turn("p-1", "advisor", "hi", false))
	assert.Nil(t, res)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInternal, errors.AsStandard(err).Code)

	release()
	res, err = env.coord.ProcessTurn(context.Background(), turn("p-1", "advisor", "hi", false))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sequence)
	assert.Zero(t, env.coord.seq.active())
}

// ==========================
// Secondary intents and replay
// ==========================

func TestProcessTurn_IntentsIncludeSecondaryMatches(t *testing.T) {
	env := newTestEnv(t, nil)

	res, err := env.coord.ProcessTurn(context.Background(), turn("p-1", "advisor", "help me with my pitch", false))
	require.NoError(t, err)
	assert.Equal(t, engine.IntentPitchHelp, res.Intent.Intent)

	var ids []engine.IntentID
	for _, in := range res.Intents {
		ids = append(ids, in.Intent)
	}
	assert.Contains(t, ids, engine.IntentPitchHelp)
	assert.Contains(t, ids, engine.IntentHelpRequest)
}

func TestProcessTurn_RedeliveredTurnIsNotCountedTwice(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)

	req := turn("p-1", "program", "show me the tactic", false)
	req.TurnID = "zeebe-job-42"
	first, err := env.coord.ProcessTurn(ctx, req)
	require.NoError(t, err)
	again, err := env.coord.ProcessTurn(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "zeebe-job-42", first.TurnID)
	assert.Equal(t, first.Sequence, again.Sequence)
	assert.Equal(t, first.Text, again.Text)
	assert.Equal(t, first.Effects, again.Effects)

	stored, err := env.repo.LoadContext(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.MessageCount)
	history, err := env.repo.LoadHistory(ctx, "p-1")
	require.NoError(t, err)
	assert.Len(t, history.Messages, 2)
	assert.Len(t, env.archiver.records, 1)

	req.TurnID = "zeebe-job-43"
	next, err := env.coord.ProcessTurn(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, next.Sequence)
}
