// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// adserved is a demo daemon embedding the serving engine: sqlite-backed
// catalog, event history and bandit state, an HTTP serve endpoint, and
// Prometheus metrics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adxyz/adserve/pkg/ads"
	"github.com/adxyz/adserve/pkg/bandit"
	"github.com/adxyz/adserve/pkg/catalog"
	"github.com/adxyz/adserve/pkg/clock"
	"github.com/adxyz/adserve/pkg/deposits"
	"github.com/adxyz/adserve/pkg/history"
	"github.com/adxyz/adserve/pkg/locale"
	"github.com/adxyz/adserve/pkg/log"
	"github.com/adxyz/adserve/pkg/metric"
	"github.com/adxyz/adserve/pkg/permission"
	"github.com/adxyz/adserve/pkg/predictor"
	"github.com/adxyz/adserve/pkg/random"
	"github.com/adxyz/adserve/pkg/serving"
)

// AppConfig is the daemon's environment configuration.
type AppConfig struct {
	HTTPAddr string `envconfig:"ADSERVE_HTTP_ADDR" default:":8080"`
	DataDir  string `envconfig:"ADSERVE_DATA_DIR" default:"/var/lib/adserved"`
	LogLevel string `envconfig:"ADSERVE_LOG_LEVEL" default:"info"`

	Country     string `envconfig:"ADSERVE_COUNTRY" default:"US"`
	Subdivision string `envconfig:"ADSERVE_SUBDIVISION" default:""`

	OptedIn []string `envconfig:"ADSERVE_OPTED_IN_AD_TYPES" default:"ad_notification,inline_content_ad"`

	PacingEnabled          bool          `envconfig:"ADSERVE_PACING_ENABLED" default:"true"`
	SameAdvertiserExcluded bool          `envconfig:"ADSERVE_SAME_ADVERTISER_EXCLUSION" default:"true"`
	Epsilon                float64       `envconfig:"ADSERVE_EPSILON" default:"0.25"`
	DailyCapDefault        int           `envconfig:"ADSERVE_DAILY_CAP_DEFAULT" default:"0"`
	CatalogPingInterval    time.Duration `envconfig:"ADSERVE_CATALOG_PING_INTERVAL" default:"2h"`
	HistoryRetention       time.Duration `envconfig:"ADSERVE_HISTORY_RETENTION" default:"2160h"`
	SweepInterval          time.Duration `envconfig:"ADSERVE_SWEEP_INTERVAL" default:"1h"`
}

type server struct {
	orchestrator *serving.Orchestrator
	optedIn      map[ads.AdType]bool
	startedAt    time.Time
	log          log.Logger
}

func main() {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}

	logger := log.NewWithLevel(cfg.LogLevel)
	defer logger.Sync()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Fatal("failed to create data dir", "dir", cfg.DataDir, "error", err)
	}

	catalogStore, err := catalog.OpenSQLite(filepath.Join(cfg.DataDir, "catalog.db"))
	if err != nil {
		logger.Fatal("failed to open catalog", "error", err)
	}
	defer catalogStore.Close()

	eventStore, err := history.OpenSQLite(filepath.Join(cfg.DataDir, "events.db"))
	if err != nil {
		logger.Fatal("failed to open event history", "error", err)
	}
	defer eventStore.Close()

	banditStore, err := bandit.OpenSQLite(filepath.Join(cfg.DataDir, "bandit.db"))
	if err != nil {
		logger.Fatal("failed to open bandit state", "error", err)
	}
	defer banditStore.Close()

	registry := prometheus.NewRegistry()
	metrics, err := metric.NewMetrics(registry)
	if err != nil {
		logger.Fatal("failed to register metrics", "error", err)
	}

	engineCfg := serving.DefaultConfig()
	engineCfg.PacingEnabled = cfg.PacingEnabled
	engineCfg.SameAdvertiserExclusionEnabled = cfg.SameAdvertiserExcluded
	engineCfg.Epsilon = cfg.Epsilon
	engineCfg.DailyCapDefault = cfg.DailyCapDefault
	engineCfg.CatalogPingInterval = cfg.CatalogPingInterval
	engineCfg.HistoryRetentionWindow = cfg.HistoryRetention

	rand := random.New(time.Now().UnixNano())
	clk := clock.System()

	orchestrator := serving.New(serving.Params{
		Config:   engineCfg,
		Catalog:  catalogStore,
		History:  eventStore,
		Locale:   locale.NewStatic(cfg.Country, cfg.Subdivision),
		Clock:    clk,
		Rand:     rand,
		Bandit:   bandit.New(cfg.Epsilon, rand, banditStore, logger),
		Deposits: deposits.NewManager(clk, logger),
		Weights:  predictor.DefaultWeights(),
		Metrics:  metrics,
		Log:      logger,
	})

	optedIn := make(map[ads.AdType]bool, len(cfg.OptedIn))
	for _, t := range cfg.OptedIn {
		optedIn[ads.AdType(t)] = true
	}

	s := &server{
		orchestrator: orchestrator,
		optedIn:      optedIn,
		startedAt:    time.Now(),
		log:          logger,
	}

	router := mux.NewRouter()
	router.HandleFunc("/v1/serve/{adType}", s.handleServe).Methods(http.MethodPost)
	router.HandleFunc("/v1/event", s.handleEvent).Methods(http.MethodPost)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go s.sweepLoop(ctx, cfg.SweepInterval)

	go func() {
		logger.Info("adserved listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func (s *server) sweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.orchestrator.RunRetentionSweep(ctx); err != nil {
				s.log.Error("retention sweep failed", "error", err)
			}
		}
	}
}

type serveRequest struct {
	IntentSegments   []string `json:"intent_segments"`
	InterestSegments []string `json:"interest_segments"`
}

type serveResponse struct {
	CreativeInstanceID string `json:"creative_instance_id"`
	CreativeSetID      string `json:"creative_set_id"`
	CampaignID         string `json:"campaign_id"`
	AdvertiserID       string `json:"advertiser_id"`
	Segment            string `json:"segment"`
}

func (s *server) handleServe(w http.ResponseWriter, r *http.Request) {
	adType := ads.AdType(mux.Vars(r)["adType"])

	var req serveRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	pctx := permission.Context{
		OptedInAdTypes:     s.optedIn,
		CatalogLastUpdated: s.startedAt,
	}
	model := &ads.UserModel{
		IntentSegments:   req.IntentSegments,
		InterestSegments: req.InterestSegments,
	}

	ad, err := s.orchestrator.GetEligibleAd(r.Context(), adType, pctx, model)
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(serveResponse{
			CreativeInstanceID: ad.CreativeInstanceID,
			CreativeSetID:      ad.CreativeSetID,
			CampaignID:         ad.CampaignID,
			AdvertiserID:       ad.AdvertiserID,
			Segment:            ad.Segment,
		})
	case errors.Is(err, serving.ErrPermissionDenied):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, serving.ErrNoEligibleAd):
		w.WriteHeader(http.StatusNoContent)
	default:
		s.log.Error("serve failed", "ad_type", adType, "error", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
	}
}

type eventRequest struct {
	PlacementID        string `json:"placement_id"`
	CreativeInstanceID string `json:"creative_instance_id"`
	CreativeSetID      string `json:"creative_set_id"`
	CampaignID         string `json:"campaign_id"`
	AdvertiserID       string `json:"advertiser_id"`
	Segment            string `json:"segment"`
	AdType             string `json:"ad_type"`
	ConfirmationType   string `json:"confirmation_type"`
}

func (s *server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	ad := ads.CreativeAd{
		CreativeInstanceID: req.CreativeInstanceID,
		CreativeSetID:      req.CreativeSetID,
		CampaignID:         req.CampaignID,
		AdvertiserID:       req.AdvertiserID,
		Segment:            req.Segment,
	}
	err := s.orchestrator.RecordEvent(r.Context(), req.PlacementID, &ad,
		ads.AdType(req.AdType), ads.ConfirmationType(req.ConfirmationType))
	if err != nil {
		s.log.Error("record event failed", "error", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
