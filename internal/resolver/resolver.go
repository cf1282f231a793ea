package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/lccn-resolver/internal/models"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/storage"
	"github.com/lehigh-university-libraries/lccn-resolver/internal/textnorm"
)

// Searcher looks a title up in the remote catalog
type Searcher interface {
	Search(ctx context.Context, title string) ([]models.MatchCandidate, error)
}

// TitleFetcher returns the catalog's canonical title for an LCCN
type TitleFetcher interface {
	TitleForLCCN(ctx context.Context, lccn string) (string, error)
}

// DumpScanner matches a title against the bulk dump
type DumpScanner interface {
	Scan(ctx context.Context, title string) ([]models.MatchCandidate, error)
}

// RejectRecorder keeps the Title,Reason report of unresolved titles
type RejectRecorder interface {
	Record(title, reason string) (bool, error)
}

// BudgetReserver holds a slot of the remote rate budget on the returned
// context, ahead of the remote call that spends it
type BudgetReserver interface {
	Reserve(ctx context.Context) (context.Context, error)
}

// Strategy is the order in which sources are tried after the store
type Strategy string

const (
	StrategyRemoteFirst Strategy = "remote-first"
	StrategyBulkFirst   Strategy = "bulk-first"
)

// ParseStrategy validates a strategy name
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyRemoteFirst:
		return StrategyRemoteFirst, nil
	case StrategyBulkFirst:
		return StrategyBulkFirst, nil
	default:
		return "", fmt.Errorf("unknown strategy %q (expected %s or %s)", s, StrategyRemoteFirst, StrategyBulkFirst)
	}
}

// State is where a title's resolution ended up
type State string

const (
	StatePending      State = "pending"
	StateCheckedCache State = "checked_cache"
	StateCacheHit     State = "cache_hit"
	StateTriedRemote  State = "tried_remote"
	StateRemoteHit    State = "remote_hit"
	StateTriedBulk    State = "tried_bulk"
	StateBulkHit      State = "bulk_hit"
	StateNoMatch      State = "no_match"
	StateRejected     State = "rejected"
)

// Terminal reports whether no further transition follows s
func (s State) Terminal() bool {
	switch s {
	case StateCacheHit, StateRemoteHit, StateBulkHit, StateNoMatch, StateRejected:
		return true
	}
	return false
}

// Config tunes the resolver
type Config struct {
	Strategy         Strategy
	RemoteTimeout    time.Duration
	MaxAlternates    int
	ConfirmLCCNs     bool
	ConfirmThreshold int
	Concurrency      int
}

// DefaultConfig returns the remote-first settings
func DefaultConfig() Config {
	return Config{
		Strategy:         StrategyRemoteFirst,
		RemoteTimeout:    10 * time.Second,
		MaxAlternates:    4,
		ConfirmThreshold: 95,
		Concurrency:      1,
	}
}

// Outcome describes how one title was resolved
type Outcome struct {
	Title        string
	CleanedTitle string
	State        State
	Record       *models.ResolutionRecord
	Candidates   []models.MatchCandidate
	Score        int
	RejectReason string
	Inserted     bool
	Duration     time.Duration
}

// Resolver turns titles into persisted resolutions: store first, then the
// configured sources in order, then an explicit no-match
type Resolver struct {
	cfg     Config
	store   storage.Store
	remote  Searcher
	bulk    DumpScanner
	fetcher TitleFetcher
	rejects RejectRecorder
	budget  BudgetReserver
}

// Option configures a Resolver
type Option func(*Resolver)

func WithRemote(remote Searcher) Option {
	return func(r *Resolver) { r.remote = remote }
}

func WithBulk(bulk DumpScanner) Option {
	return func(r *Resolver) { r.bulk = bulk }
}

func WithTitleFetcher(fetcher TitleFetcher) Option {
	return func(r *Resolver) { r.fetcher = fetcher }
}

// WithBudget makes remote searches wait for rate budget before their
// timeout starts
func WithBudget(budget BudgetReserver) Option {
	return func(r *Resolver) { r.budget = budget }
}

func WithRejectLog(rejects RejectRecorder) Option {
	return func(r *Resolver) { r.rejects = rejects }
}

// New creates a resolver over store
func New(cfg Config, store storage.Store, opts ...Option) *Resolver {
	defaults := DefaultConfig()
	if cfg.Strategy == "" {
		cfg.Strategy = defaults.Strategy
	}
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = defaults.RemoteTimeout
	}
	if cfg.MaxAlternates < 0 {
		cfg.MaxAlternates = 0
	}
	if cfg.ConfirmThreshold <= 0 {
		cfg.ConfirmThreshold = defaults.ConfirmThreshold
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	r := &Resolver{cfg: cfg, store: store}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve resolves one title. Only store failures are returned as errors;
// source failures and timeouts count as misses.
func (r *Resolver) Resolve(ctx context.Context, title string) (Outcome, error) {
	start := time.Now()
	out := Outcome{Title: title, State: StatePending}

	cleaned, err := textnorm.Screen(title)
	if err != nil {
		var rejection *textnorm.RejectionError
		if !errors.As(err, &rejection) {
			return out, err
		}
		out.State = StateRejected
		out.RejectReason = rejection.Reason
		r.recordReject(title, rejection.Reason)
		slog.Info("Rejected title", "title", title, "reason", rejection.Reason)
		out.Duration = time.Since(start)
		return out, nil
	}
	out.CleanedTitle = cleaned

	existing, err := r.store.Lookup(ctx, cleaned)
	if err != nil {
		return out, fmt.Errorf("failed to look up %q: %w", cleaned, err)
	}
	out.State = StateCheckedCache
	if existing != nil {
		out.State = StateCacheHit
		out.Record = existing
		slog.Debug("Reusing stored resolution", "title", cleaned, "lccn", existing.LCCN)
		out.Duration = time.Since(start)
		return out, nil
	}

	for _, source := range r.order() {
		var candidates []models.MatchCandidate
		switch source {
		case models.OriginRemote:
			out.State = StateTriedRemote
			candidates = r.searchRemote(ctx, cleaned)
		case models.OriginBulkDump:
			out.State = StateTriedBulk
			candidates = r.scanBulk(ctx, cleaned)
		}
		candidates = withIdentifiers(candidates)
		if len(candidates) == 0 {
			continue
		}

		record, score := Select(cleaned, candidates, r.cfg.MaxAlternates)
		out.Candidates = candidates
		out.Score = score
		out.Record = &record
		if source == models.OriginRemote {
			out.State = StateRemoteHit
		} else {
			out.State = StateBulkHit
		}
		break
	}

	if out.Record == nil {
		out.State = StateNoMatch
		out.Record = &models.ResolutionRecord{
			Title:   cleaned,
			Source:  models.SourceNone,
			NoMatch: models.NoMatchMarker,
		}
		r.recordReject(cleaned, textnorm.ReasonNotFound)
	}

	if err := ctx.Err(); err != nil {
		return out, err
	}

	inserted, err := r.store.Upsert(ctx, *out.Record)
	if err != nil {
		return out, fmt.Errorf("failed to store resolution for %q: %w", cleaned, err)
	}
	out.Inserted = inserted
	out.Duration = time.Since(start)

	slog.Info("Resolved title",
		"title", cleaned,
		"state", out.State,
		"lccn", out.Record.LCCN,
		"oclc", out.Record.OCLC,
		"source", out.Record.Source,
		"duration", out.Duration)
	return out, nil
}

func (r *Resolver) order() []models.Origin {
	var order []models.Origin
	if r.cfg.Strategy == StrategyBulkFirst {
		order = []models.Origin{models.OriginBulkDump, models.OriginRemote}
	} else {
		order = []models.Origin{models.OriginRemote, models.OriginBulkDump}
	}

	available := order[:0]
	for _, origin := range order {
		if origin == models.OriginRemote && r.remote == nil {
			continue
		}
		if origin == models.OriginBulkDump && r.bulk == nil {
			continue
		}
		available = append(available, origin)
	}
	return available
}

// searchRemote runs the remote search under RemoteTimeout. A search still
// running when the timeout fires is abandoned and its result discarded.
// Waiting for rate budget happens before the timeout starts.
func (r *Resolver) searchRemote(ctx context.Context, title string) []models.MatchCandidate {
	if r.budget != nil {
		reserved, err := r.budget.Reserve(ctx)
		if err != nil {
			slog.Warn("Stopped waiting for remote budget", "title", title, "err", err)
			return nil
		}
		ctx = reserved
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.cfg.RemoteTimeout)
	defer cancel()

	type result struct {
		candidates []models.MatchCandidate
		err        error
	}
	done := make(chan result, 1)
	go func() {
		candidates, err := r.remote.Search(searchCtx, title)
		done <- result{candidates: candidates, err: err}
	}()

	var candidates []models.MatchCandidate
	select {
	case res := <-done:
		if res.err != nil {
			slog.Warn("Remote search failed", "title", title, "err", res.err)
			return nil
		}
		candidates = res.candidates
	case <-searchCtx.Done():
		slog.Warn("Remote search timed out, falling back", "title", title, "timeout", r.cfg.RemoteTimeout)
		return nil
	}

	if r.cfg.ConfirmLCCNs && r.fetcher != nil && len(candidates) > 0 {
		confirmed, ok := r.confirmCandidates(ctx, title, candidates)
		if !ok {
			slog.Info("No remote LCCN confirmed", "title", title)
			return nil
		}
		return []models.MatchCandidate{confirmed}
	}
	return candidates
}

func (r *Resolver) scanBulk(ctx context.Context, title string) []models.MatchCandidate {
	candidates, err := r.bulk.Scan(ctx, title)
	if err != nil {
		slog.Warn("Dump scan failed", "title", title, "err", err)
	}
	return candidates
}

func (r *Resolver) recordReject(title, reason string) {
	if r.rejects == nil {
		return
	}
	if _, err := r.rejects.Record(title, reason); err != nil {
		slog.Warn("Failed to record rejected title", "title", title, "reason", reason, "err", err)
	}
}

func withIdentifiers(candidates []models.MatchCandidate) []models.MatchCandidate {
	var out []models.MatchCandidate
	for _, c := range candidates {
		if c.HasIdentifier() {
			out = append(out, c)
		}
	}
	return out
}
