package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ayush/research-dashboard/internal/logging"
	"github.com/ayush/research-dashboard/internal/models"
)

var (
	// ErrEmptyQuery is returned for an empty or whitespace-only query.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrSuperseded is returned by a search that was replaced by a newer one
	// for the same session before it finished.
	ErrSuperseded = errors.New("search superseded by a newer request")
)

// Requestor performs the two backend passes of a search.
type Requestor interface {
	Gather(ctx context.Context, query string) (*Gathered, error)
	Analyze(ctx context.Context, content string) models.TopicAnalytics
}

// Snapshot is the observable state of a session.
type Snapshot struct {
	Status    models.AgentStatus     `json:"status"`
	Seq       uint64                 `json:"seq"`
	Query     string                 `json:"query,omitempty"`
	Result    *models.ResearchResult `json:"result,omitempty"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// DefaultSessionRetention is how long a finished session's state is kept
// after its last update.
const DefaultSessionRetention = time.Hour

type session struct {
	seq    uint64
	cancel context.CancelFunc
	snap   Snapshot
}

// Agent runs searches and tracks per-session progress. Each search gets a
// sequence number; only the latest search of a session may change its state.
// Sequence numbers are unique across sessions, so a dropped session can never
// match a run that outlived it.
type Agent struct {
	req       Requestor
	inFlight  *semaphore.Weighted
	log       *zap.Logger
	now       func() time.Time
	retention time.Duration

	mu       sync.Mutex
	seq      uint64
	sessions map[string]*session
}

// AgentOption customizes an Agent.
type AgentOption func(*Agent)

// WithSessionRetention sets how long idle sessions are remembered. Zero or
// negative keeps the default.
func WithSessionRetention(d time.Duration) AgentOption {
	return func(a *Agent) {
		if d > 0 {
			a.retention = d
		}
	}
}

// NewAgent creates an Agent allowing at most maxInFlight concurrent searches
// across all sessions.
func NewAgent(req Requestor, maxInFlight int64, log *zap.Logger, opts ...AgentOption) *Agent {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	a := &Agent{
		req:       req,
		inFlight:  semaphore.NewWeighted(maxInFlight),
		log:       logging.OrNop(log),
		now:       time.Now,
		retention: DefaultSessionRetention,
		sessions:  make(map[string]*session),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Search runs research then analytics for query and returns the composed
// result. Starting a search cancels the previous in-flight search of the same
// session.
func (a *Agent) Search(ctx context.Context, key, query string) (*models.ResearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	runCtx, seq := a.begin(ctx, key, query)
	defer a.release(key, seq)
	log := a.log.With(zap.String("session", key), zap.Uint64("seq", seq))

	if err := a.inFlight.Acquire(runCtx, 1); err != nil {
		if !a.fail(key, seq) {
			return nil, ErrSuperseded
		}
		return nil, fmt.Errorf("wait for search slot: %w", err)
	}
	defer a.inFlight.Release(1)

	log.Info("research started", zap.String("query", query))
	gathered, err := a.req.Gather(runCtx, query)
	if err != nil {
		if !a.fail(key, seq) {
			return nil, ErrSuperseded
		}
		log.Error("research failed", zap.Error(err))
		return nil, err
	}

	if !a.advance(key, seq, models.StatusAnalyzing) {
		log.Info("discarding stale research response")
		return nil, ErrSuperseded
	}

	analytics := a.req.Analyze(runCtx, gathered.Text)
	result := Compose(gathered.Text, gathered.GroundingChunks, analytics)

	if !a.complete(key, seq, result) {
		log.Info("discarding stale analytics response")
		return nil, ErrSuperseded
	}
	log.Info("research completed", zap.Int("sources", len(result.Sources)))
	return result, nil
}

// Snapshot returns the current state of a session. Unknown sessions are IDLE.
func (a *Agent) Snapshot(key string) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[key]
	if !ok {
		return Snapshot{Status: models.StatusIdle}
	}
	return s.snap
}

// Reset cancels any in-flight search of the session and forgets it, which
// leaves it IDLE.
func (a *Agent) Reset(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[key]
	if !ok {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	delete(a.sessions, key)
}

// Sessions reports how many sessions the agent currently tracks.
func (a *Agent) Sessions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sessions)
}

func (a *Agent) begin(ctx context.Context, key, query string) (context.Context, uint64) {
	runCtx, cancel := context.WithCancel(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	a.prune(now)

	s, ok := a.sessions[key]
	if !ok {
		s = &session{}
		a.sessions[key] = s
	}
	if s.cancel != nil {
		s.cancel()
	}
	a.seq++
	s.seq = a.seq
	s.cancel = cancel
	s.snap = Snapshot{Status: models.StatusSearching, Seq: s.seq, Query: query, UpdatedAt: now}
	return runCtx, s.seq
}

// prune drops sessions with no search running whose state is older than the
// retention window. Caller holds a.mu.
func (a *Agent) prune(now time.Time) {
	for key, s := range a.sessions {
		if s.cancel == nil && now.Sub(s.snap.UpdatedAt) > a.retention {
			delete(a.sessions, key)
		}
	}
}

// release cancels the run's context. The session's cancel func is cleared
// only if it still belongs to this run.
func (a *Agent) release(key string, seq uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[key]
	if !ok {
		return
	}
	if s.seq == seq && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// commit applies fn when seq is still the session's latest run.
func (a *Agent) commit(key string, seq uint64, fn func(*Snapshot)) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[key]
	if !ok || s.seq != seq {
		return false
	}
	fn(&s.snap)
	s.snap.UpdatedAt = a.now()
	return true
}

func (a *Agent) advance(key string, seq uint64, status models.AgentStatus) bool {
	return a.commit(key, seq, func(s *Snapshot) { s.Status = status })
}

func (a *Agent) fail(key string, seq uint64) bool {
	return a.commit(key, seq, func(s *Snapshot) {
		s.Status = models.StatusError
		s.Result = nil
	})
}

func (a *Agent) complete(key string, seq uint64, result *models.ResearchResult) bool {
	return a.commit(key, seq, func(s *Snapshot) {
		s.Status = models.StatusCompleted
		s.Result = result
	})
}
