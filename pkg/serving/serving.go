// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package serving composes the eligible-ads pipeline: permission gate,
// candidate fetch, exclusion, pacing, scoring and sampling. One serving
// attempt runs synchronously end to end; retrying is the caller's job.
package serving

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adxyz/adserve/pkg/ads"
	"github.com/adxyz/adserve/pkg/bandit"
	"github.com/adxyz/adserve/pkg/catalog"
	"github.com/adxyz/adserve/pkg/clock"
	"github.com/adxyz/adserve/pkg/deposits"
	"github.com/adxyz/adserve/pkg/exclusion"
	"github.com/adxyz/adserve/pkg/history"
	"github.com/adxyz/adserve/pkg/locale"
	"github.com/adxyz/adserve/pkg/log"
	"github.com/adxyz/adserve/pkg/metric"
	"github.com/adxyz/adserve/pkg/pacing"
	"github.com/adxyz/adserve/pkg/permission"
	"github.com/adxyz/adserve/pkg/predictor"
	"github.com/adxyz/adserve/pkg/random"
	"github.com/adxyz/adserve/pkg/sampler"
)

// Expected negative serving outcomes. Neither is exceptional; callers
// simply try again on the next interval.
var (
	ErrPermissionDenied = errors.New("serving not permitted")
	ErrNoEligibleAd     = errors.New("no eligible ad")
)

// State tags where in the pipeline a serving attempt is or ended.
type State string

const (
	StateIdle               State = "idle"
	StateCheckingPermission State = "checking_permission"
	StateFetchingCandidates State = "fetching_candidates"
	StateExcluding          State = "excluding"
	StatePacing             State = "pacing"
	StateScoring            State = "scoring"
	StateSampling           State = "sampling"
	StateServed             State = "served"
	StateNoEligibleAd       State = "no_eligible_ad"
	StatePermissionDenied   State = "permission_denied"
	StateStorageError       State = "storage_error"
)

// Params are the orchestrator's dependencies. All collaborators are
// injected explicitly; there is no ambient global state.
type Params struct {
	Config   Config
	Catalog  catalog.Store
	History  history.Store
	Locale   locale.Resolver
	Clock    clock.Clock
	Rand     random.Source
	Bandit   *bandit.EpsilonGreedy
	Deposits *deposits.Manager
	Weights  predictor.Weights
	Metrics  *metric.Metrics
	Log      log.Logger
}

// Orchestrator runs single-shot serving attempts over the injected
// collaborators.
type Orchestrator struct {
	cfg        Config
	catalog    catalog.Store
	history    history.Store
	locale     locale.Resolver
	clock      clock.Clock
	rand       random.Source
	bandit     *bandit.EpsilonGreedy
	deposits   *deposits.Manager
	permission *permission.Rules
	pacer      *pacing.Pacer
	scorer     *predictor.Scorer
	rules      []exclusion.Rule
	metrics    *metric.Metrics
	log        log.Logger

	// appendMu serializes history appends across concurrent serving
	// attempts; reads stay concurrent.
	appendMu sync.Mutex
}

// New creates an orchestrator. Catalog, History and Locale are required;
// the remaining collaborators default to production implementations.
func New(p Params) *Orchestrator {
	if p.Clock == nil {
		p.Clock = clock.System()
	}
	if p.Rand == nil {
		p.Rand = random.New(time.Now().UnixNano())
	}
	if p.Log == nil {
		p.Log = log.NoLog
	}
	if p.Metrics == nil {
		p.Metrics = metric.NopMetrics()
	}
	if p.Bandit == nil {
		p.Bandit = bandit.New(p.Config.Epsilon, p.Rand, nil, p.Log)
	}
	if p.Weights == (predictor.Weights{}) {
		p.Weights = predictor.DefaultWeights()
	}

	return &Orchestrator{
		cfg:      p.Config,
		catalog:  p.Catalog,
		history:  p.History,
		locale:   p.Locale,
		clock:    p.Clock,
		rand:     p.Rand,
		bandit:   p.Bandit,
		deposits: p.Deposits,
		permission: permission.NewRules(
			p.Config.CatalogPingInterval, p.Config.IdleThreshold, p.Clock, p.Log),
		pacer:   pacing.New(p.Config.PacingEnabled, p.Rand, p.Log),
		scorer:  predictor.NewScorer(p.Weights, p.Bandit, p.Clock, 0),
		rules:   exclusion.DefaultRules(),
		metrics: p.Metrics,
		log:     p.Log,
	}
}

// Permission exposes the permission gate, mainly for its diagnostic last
// message.
func (o *Orchestrator) Permission() *permission.Rules {
	return o.permission
}

// GetEligibleAd runs one serving attempt and returns the sampled ad. It
// returns ErrPermissionDenied or ErrNoEligibleAd for the expected negative
// outcomes and propagates storage errors without retrying.
func (o *Orchestrator) GetEligibleAd(ctx context.Context, adType ads.AdType, pctx permission.Context, model *ads.UserModel) (*ads.CreativeAd, error) {
	start := o.clock.Now()
	ad, state, err := o.serve(ctx, adType, pctx, model)
	o.metrics.ServeAttempts.WithLabelValues(string(adType), string(state)).Inc()
	o.metrics.ServeDuration.Observe(o.clock.Now().Sub(start).Seconds())
	return ad, err
}

func (o *Orchestrator) serve(ctx context.Context, adType ads.AdType, pctx permission.Context, model *ads.UserModel) (*ads.CreativeAd, State, error) {
	// CheckingPermission: fail fast before any catalog work.
	if !o.permission.HasPermission(adType, pctx) {
		return nil, StatePermissionDenied,
			fmt.Errorf("%w: %s", ErrPermissionDenied, o.permission.LastMessage())
	}

	// FetchingCandidates.
	candidates, err := o.catalog.GetCandidates(ctx, adType, nil)
	if err != nil {
		return nil, StateStorageError, fmt.Errorf("fetch candidates: %w", err)
	}
	candidates = o.dropInvalid(candidates)
	o.metrics.StageCandidates.WithLabelValues("fetched").Observe(float64(len(candidates)))
	if len(candidates) == 0 {
		return nil, StateNoEligibleAd, ErrNoEligibleAd
	}

	// Excluding: one history snapshot per attempt keeps every rule
	// counting against the same events.
	now := o.clock.Now()
	snapshot, err := o.takeSnapshot(ctx, adType, now)
	if err != nil {
		return nil, StateStorageError, err
	}
	candidates = exclusion.Apply(candidates, o.rules, &exclusion.Context{
		Snapshot:        snapshot,
		Now:             now,
		AdType:          adType,
		CountryCode:     o.locale.CountryCode(),
		SubdivisionCode: o.locale.SubdivisionCode(),
		Config: exclusion.Config{
			DailyCapDefault:                o.cfg.DailyCapDefault,
			SameAdvertiserExclusionEnabled: o.cfg.SameAdvertiserExclusionEnabled,
		},
	}, o.log)
	o.metrics.StageCandidates.WithLabelValues("excluded").Observe(float64(len(candidates)))
	if len(candidates) == 0 {
		return nil, StateNoEligibleAd, ErrNoEligibleAd
	}

	// Pacing.
	candidates = o.pacer.PaceAds(candidates)
	o.metrics.StageCandidates.WithLabelValues("paced").Observe(float64(len(candidates)))
	if len(candidates) == 0 {
		return nil, StateNoEligibleAd, ErrNoEligibleAd
	}

	// Scoring and Sampling.
	scores := o.scorer.ScoreAll(candidates, model)
	probabilities := sampler.ComputeProbabilities(scores)
	winner := sampler.Sample(candidates, probabilities, o.rand)
	if winner == nil {
		return nil, StateNoEligibleAd, ErrNoEligibleAd
	}

	// Cancellation before the served append is a clean no-op; after the
	// append the serve already happened and is never reversed.
	if err := ctx.Err(); err != nil {
		return nil, StateNoEligibleAd, err
	}
	o.recordServed(ctx, winner, adType, now)

	o.metrics.AdsServed.WithLabelValues(string(adType), winner.Segment).Inc()
	o.log.Info("ad served",
		"ad_type", adType,
		"creative_instance_id", winner.CreativeInstanceID,
		"segment", winner.Segment)
	return winner, StateServed, nil
}

// dropInvalid skips candidates failing their own invariants. One bad
// record never aborts the attempt.
func (o *Orchestrator) dropInvalid(candidates []ads.CreativeAd) []ads.CreativeAd {
	out := candidates[:0]
	for i := range candidates {
		if err := candidates[i].Validate(); err != nil {
			o.log.Warn("skipping malformed candidate", "error", err)
			continue
		}
		out = append(out, candidates[i])
	}
	return out
}

func (o *Orchestrator) takeSnapshot(ctx context.Context, adType ads.AdType, now time.Time) (*exclusion.Snapshot, error) {
	window := history.Window{}
	if o.cfg.HistoryRetentionWindow > 0 {
		window.Since = now.Add(-o.cfg.HistoryRetentionWindow)
	}
	events, err := o.history.Query(ctx, history.Scope{AdType: adType}, window)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	lastServed, err := o.history.LastServed(ctx, adType)
	if err != nil {
		return nil, fmt.Errorf("query last served: %w", err)
	}
	return exclusion.NewSnapshot(events, lastServed), nil
}

// recordServed appends the served event exactly once per successful pick.
// The append is best-effort: failing to serve an already-selected ad is
// worse than a slightly stale cap count.
func (o *Orchestrator) recordServed(ctx context.Context, ad *ads.CreativeAd, adType ads.AdType, now time.Time) {
	event := ads.NewAdEvent(uuid.NewString(), ad, adType, ads.ConfirmationServed, now)

	o.appendMu.Lock()
	err := o.history.Append(ctx, event)
	o.appendMu.Unlock()
	if err != nil {
		o.log.Error("failed to record served event",
			"creative_instance_id", ad.CreativeInstanceID, "error", err)
		return
	}
	o.metrics.EventsFired.WithLabelValues(string(ads.ConfirmationServed)).Inc()
}

// RecordEvent records a post-serve lifecycle event: it appends to history,
// feeds the segment bandit, and credits a deposit for reward-bearing
// interactions.
func (o *Orchestrator) RecordEvent(ctx context.Context, placementID string, ad *ads.CreativeAd, adType ads.AdType, confirmation ads.ConfirmationType) error {
	event := ads.NewAdEvent(placementID, ad, adType, confirmation, o.clock.Now())

	o.appendMu.Lock()
	err := o.history.Append(ctx, event)
	o.appendMu.Unlock()
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	o.metrics.EventsFired.WithLabelValues(string(confirmation)).Inc()

	switch confirmation {
	case ads.ConfirmationViewed, ads.ConfirmationClicked,
		ads.ConfirmationDismissed, ads.ConfirmationLanded, ads.ConfirmationConverted:
		o.bandit.Process(ads.BanditFeedback{Segment: ad.Segment, EventType: confirmation})
	}

	if o.deposits != nil && confirmation == ads.ConfirmationClicked {
		o.deposits.Add(ad.CreativeInstanceID, o.cfg.DepositValue, o.cfg.DepositTTL)
	}
	return nil
}

// RunRetentionSweep purges events older than the retention window and
// expired deposits. Intended to be called periodically by the embedder.
func (o *Orchestrator) RunRetentionSweep(ctx context.Context) error {
	if o.cfg.HistoryRetentionWindow <= 0 {
		return nil
	}
	cutoff := o.clock.Now().Add(-o.cfg.HistoryRetentionWindow)
	purged, err := o.history.PurgeExpired(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge history: %w", err)
	}
	if purged > 0 {
		o.log.Info("history purged", "events", purged)
	}
	if o.deposits != nil {
		o.deposits.Sweep()
	}
	return nil
}
