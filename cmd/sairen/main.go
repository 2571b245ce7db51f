// Package main — cmd/sairen/main.go
//
// SAIREN-OS rig agent entrypoint.
//
// Startup sequence:
//  1. Parse flags, print version and exit if requested.
//  2. Load and validate config.yaml.
//  3. Initialise structured logger (zap).
//  4. Open BoltDB storage, restore baselines from disk.
//  5. Start the Prometheus metrics server (loopback only), unless in
//     lightweight mode.
//  6. Construct the pipeline coordinator (CfC, cluster, formation,
//     tactical, strategic, orchestrator, composer all wired inside).
//  7. Start the operator console Unix socket, if enabled.
//  8. Start the checkpoint loop, and the federation loop if enabled.
//  9. Start the ingest source (stdin CSV, file CSV, or synthetic
//     generator) driving the coordinator's Process method.
// 10. Register SIGHUP handler for config hot-reload.
// 11. Block on SIGINT/SIGTERM for graceful shutdown.
//
// Shutdown sequence (on SIGINT/SIGTERM):
//  1. Cancel root context (propagates to all goroutines).
//  2. Wait for the ingest processor to drain (max 5s).
//  3. Close BoltDB.
//  4. Flush logger.
//  5. Exit 0.
//
// On config validation failure: exit 1 immediately.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"flag"
	"fmt"
	"hash/fnv"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/ashton-dyke/sairen-os/internal/agents"
	"github.com/ashton-dyke/sairen-os/internal/baseline"
	"github.com/ashton-dyke/sairen-os/internal/config"
	"github.com/ashton-dyke/sairen-os/internal/federation"
	"github.com/ashton-dyke/sairen-os/internal/ingest"
	"github.com/ashton-dyke/sairen-os/internal/observability"
	"github.com/ashton-dyke/sairen-os/internal/operatorconsole"
	"github.com/ashton-dyke/sairen-os/internal/pipeline"
	"github.com/ashton-dyke/sairen-os/internal/storage"
	"github.com/ashton-dyke/sairen-os/internal/ticket"
	"github.com/ashton-dyke/sairen-os/internal/wits"
)

var featureNames = []string{
	"wob", "rop", "rpm", "torque", "mse", "spp", "d_exponent", "hookload",
	"ecd", "flow_balance", "pit_rate", "dxc", "pump_spm", "mud_weight_in",
	"gas_units", "pit_volume",
}

func main() {
	configPath := flag.String("config", "/etc/sairen/config.yaml", "Path to config.yaml")
	version := flag.Bool("version", false, "Print version and exit")
	source := flag.String("source", "sim", "Packet source: sim, csv, or stdin")
	sourcePath := flag.String("input", "", "CSV file path (required when -source=csv)")
	flag.Parse()

	if *version {
		fmt.Printf("sairen %s (commit=%s built=%s)\n", config.Version, config.GitCommit, config.BuildTime)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: config load failed: %v\n", err)
		os.Exit(1)
	}
	atomicCfg := config.NewAtomicConfig(*cfg)

	log, err := buildLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("SAIREN-OS starting",
		zap.String("version", config.Version),
		zap.String("node_id", cfg.NodeID),
		zap.String("config", *configPath),
		zap.String("source", *source),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.Open(cfg.Storage.DBPath, cfg.Storage.CheckpointRetention)
	if err != nil {
		log.Fatal("BoltDB open failed", zap.Error(err), zap.String("path", cfg.Storage.DBPath))
	}
	defer db.Close() //nolint:errcheck
	log.Info("BoltDB opened", zap.String("path", cfg.Storage.DBPath))

	baselines := baseline.NewManager(cfg.Baseline.WindowSamples)
	restored, err := db.AllBaselines()
	if err != nil {
		log.Warn("baseline restore failed, starting cold", zap.Error(err))
	} else {
		records := make([]baseline.Record, len(restored))
		for i, r := range restored {
			records[i] = baseline.Record{
				Equipment: r.Equipment, Metric: r.Metric,
				Count: r.Count, Mean: r.Mean, M2: r.M2,
				Locked: r.Locked, LockedMean: r.LockedMean, LockedStd: r.LockedStd,
				LockedAt: r.LockedAt, PostLockMean: r.PostLockMean,
				PostLockM2: r.PostLockM2, PostLockN: r.PostLockN,
			}
		}
		baselines.Restore(records)
		log.Info("baselines restored", zap.Int("count", len(records)))
	}

	var metrics *observability.Metrics
	if !cfg.Agent.LightweightMode {
		metrics = observability.NewMetrics()
		go func() {
			if err := metrics.ServeMetrics(ctx, cfg.Observability.MetricsAddr); err != nil {
				log.Error("metrics server error", zap.Error(err))
			}
		}()
		log.Info("metrics server started", zap.String("addr", cfg.Observability.MetricsAddr))
	}

	sink := &advisorySink{db: db, log: log}
	coord := pipeline.New(pipeline.Config{
		Seed:              seedFromNodeID(cfg.NodeID),
		Baselines:         baselines,
		TriggerThresholds: triggerThresholdsFromConfig(cfg.Tactical),
		Sink:              sink,
		Metrics:           metricsOrNil(metrics),
		Logger:            log,
		FeatureNames:      featureNames,
		Hardness:          cfg.Well.Hardness,
		FractureGradient:  cfg.Well.FractureGradient,
	})

	if cfg.Operator.Enabled {
		registry := &operatorRegistry{baselines: baselines, tactical: coord.Tactical()}
		console := operatorconsole.NewServer(cfg.Operator.SocketPath, registry, log)
		go func() {
			if err := console.ListenAndServe(ctx); err != nil {
				log.Error("operator console error", zap.Error(err))
			}
		}()
		log.Info("operator console started", zap.String("socket", cfg.Operator.SocketPath))
	}

	go runCheckpointLoop(ctx, coord, db, cfg.NodeID, log)

	if cfg.Federation.Enabled {
		go runFederationLoop(ctx, atomicCfg, db, log)
	}

	src, err := openSource(*source, *sourcePath)
	if err != nil {
		log.Fatal("ingest source init failed", zap.Error(err))
	}

	lastPacketAt := time.Time{}
	handler := func(ctx context.Context, p wits.Packet) error {
		now := time.Unix(p.Timestamp, 0)
		dt := time.Second
		if !lastPacketAt.IsZero() && now.After(lastPacketAt) {
			dt = now.Sub(lastPacketAt)
		}
		lastPacketAt = now
		if _, err := coord.Process(ctx, p, dt); err != nil {
			log.Error("pipeline process error", zap.Error(err))
		}
		return nil
	}
	proc := ingest.NewProcessor(src, handler, log)

	procDone := make(chan struct{})
	go func() {
		defer close(procDone)
		if err := proc.Run(ctx); err != nil && err != context.Canceled {
			log.Error("ingest processor exited with error", zap.Error(err))
		}
	}()

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for range sighup {
			log.Info("SIGHUP received, reloading config")
			if err := atomicCfg.Reload(*configPath); err != nil {
				log.Error("config hot-reload failed, retaining old config", zap.Error(err))
				continue
			}
			log.Info("config hot-reload successful")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutdown signal received", zap.String("signal", sig.String()))

	cancel()

	shutdownTimer := time.NewTimer(5 * time.Second)
	defer shutdownTimer.Stop()
	select {
	case <-shutdownTimer.C:
		log.Warn("shutdown drain timeout, forcing exit")
	case <-procDone:
		log.Info("ingest processor drained")
	}

	log.Info("SAIREN-OS shutdown complete")
}

// advisorySink persists every emitted StrategicAdvisory to BoltDB. The
// dominant specialist (highest-severity vote) stands in for a category
// label in storage, since StrategicAdvisory itself is category-agnostic
// by the time it reaches the composer.
type advisorySink struct {
	db  *storage.DB
	log *zap.Logger
}

func (s *advisorySink) Emit(ctx context.Context, adv ticket.StrategicAdvisory) error {
	category := dominantSpecialist(adv.Votes)
	rec := storage.AdvisoryRecord{
		Timestamp:       adv.Timestamp,
		Category:        category,
		Severity:        adv.Severity.String(),
		RiskLevel:       adv.RiskLevel.String(),
		EfficiencyScore: adv.EfficiencyScore,
		Recommendation:  adv.Recommendation,
		ExpectedBenefit: adv.ExpectedBenefit,
		Reasoning:       adv.Reasoning,
		ContextUsed:     adv.ContextUsed,
	}
	if err := s.db.AppendAdvisory(rec); err != nil {
		return fmt.Errorf("advisorySink: append: %w", err)
	}
	s.log.Info("advisory emitted",
		zap.String("severity", rec.Severity), zap.String("risk", rec.RiskLevel),
		zap.Int("efficiency_score", rec.EfficiencyScore))
	return nil
}

func dominantSpecialist(votes []ticket.SpecialistVote) string {
	best := ""
	bestSev := ticket.Healthy
	for _, v := range votes {
		if v.Vote > bestSev {
			bestSev = v.Vote
			best = v.Name
		}
	}
	if best == "" {
		return "unknown"
	}
	return best
}

// operatorRegistry adapts a *baseline.Manager and the coordinator's
// *agents.Tactical into the single operatorconsole.Registry interface.
type operatorRegistry struct {
	baselines *baseline.Manager
	tactical  interface {
		ClearCooldown(ticket.Category)
	}
}

func (r *operatorRegistry) LockBaseline(equipment, metric string) error {
	return r.baselines.LockBaseline(equipment, metric, time.Now())
}

func (r *operatorRegistry) DowngradeBaseline(equipment, metric string) {
	r.baselines.Downgrade(equipment, metric)
}

func (r *operatorRegistry) ClearCooldown(category ticket.Category) {
	r.tactical.ClearCooldown(category)
}

func (r *operatorRegistry) Status() map[string]any {
	records := r.baselines.Snapshot()
	locked := 0
	for _, rec := range records {
		if rec.Locked {
			locked++
		}
	}
	return map[string]any{
		"baselines_tracked": len(records),
		"baselines_locked":  locked,
	}
}

// checkpointInterval is how often the fast/slow network pair is snapshot
// and persisted, independent of whether federation is enabled.
const checkpointInterval = 5 * time.Minute

// runCheckpointLoop periodically snapshots the coordinator's CfC network
// pair to BoltDB so a restart resumes training instead of starting cold.
func runCheckpointLoop(ctx context.Context, coord *pipeline.Coordinator, db *storage.DB, nodeID string, log *zap.Logger) {
	ticker := time.NewTicker(checkpointInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ck := coord.Dual().Snapshot(nodeID, nodeID, time.Now().Unix())
			if err := db.PutCheckpoint(nodeID, time.Now(), ck); err != nil {
				log.Warn("checkpoint write failed", zap.Error(err))
				continue
			}
			log.Debug("checkpoint written", zap.Int64("packets_processed", ck.Metadata.PacketsProcessed))
		}
	}
}

// runFederationLoop connects to the federation hub, waits a random
// 500-5000 ms, and then on every UploadInterval tick loads the rig's latest
// checkpoint and, once its packets_processed reaches MinSamplesForUpload,
// marshals it and pulls the newest federated round. The marshalled payload
// is not signed or sent to the hub, and a pulled round is only logged and
// its number recorded: it is not checked against an acceptance policy or
// restored into the running networks.
func runFederationLoop(ctx context.Context, atomicCfg *config.AtomicConfig, db *storage.DB, log *zap.Logger) {
	cfg := atomicCfg.Load()
	cert, err := tls.LoadX509KeyPair(cfg.Federation.TLSCertFile, cfg.Federation.TLSKeyFile)
	if err != nil {
		log.Error("federation: loading client cert failed", zap.Error(err))
		return
	}
	caCert, err := os.ReadFile(cfg.Federation.TLSCAFile)
	if err != nil {
		log.Error("federation: loading CA cert failed", zap.Error(err))
		return
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		log.Error("federation: failed to parse CA cert")
		return
	}
	creds := credentials.NewTLS(&tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool})

	conn, err := grpc.Dial(cfg.Federation.HubAddr, grpc.WithTransportCredentials(creds)) //nolint:staticcheck
	if err != nil {
		log.Error("federation: dial hub failed", zap.Error(err), zap.String("addr", cfg.Federation.HubAddr))
		return
	}
	defer conn.Close()
	client := federation.NewClient(conn)

	select {
	case <-ctx.Done():
		return
	case <-time.After(time.Duration(500+rand.Intn(4501)) * time.Millisecond):
	}

	ticker := time.NewTicker(cfg.Federation.UploadInterval)
	defer ticker.Stop()
	var lastRound int64

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cfg := atomicCfg.Load()
			ck, err := db.LatestCheckpoint(cfg.NodeID)
			if err != nil || ck == nil {
				continue
			}
			if ck.Metadata.PacketsProcessed < cfg.Federation.MinSamplesForUpload {
				continue
			}
			payload, err := federation.MarshalPayload(ck)
			if err != nil {
				log.Warn("federation: marshal checkpoint failed", zap.Error(err))
				continue
			}
			// NOTE: signing key management (loading the rig's Ed25519
			// private key) is out of scope here; a production deployment
			// provisions one alongside the mTLS client cert.
			_ = payload

			resp, err := client.PullFederatedModel(ctx, lastRound)
			if err != nil {
				log.Warn("federation: pull failed", zap.Error(err))
				continue
			}
			if resp.Found {
				lastRound = resp.Round
				log.Info("federation: new round available",
					zap.Int64("round", resp.Round), zap.Strings("rigs", resp.ContributingRigs))
			}
		}
	}
}

func openSource(kind, path string) (ingest.Source, error) {
	switch kind {
	case "csv":
		if path == "" {
			return nil, fmt.Errorf("cmd/sairen: -input is required when -source=csv")
		}
		return ingest.OpenCSVSource(path)
	case "stdin":
		return ingest.NewCSVSource(os.Stdin, "stdin")
	case "sim":
		return ingest.NewSimSource(ingest.DefaultSimConfig()), nil
	default:
		return nil, fmt.Errorf("cmd/sairen: unknown source %q", kind)
	}
}

func triggerThresholdsFromConfig(t config.TacticalConfig) agents.TriggerThresholds {
	return agents.TriggerThresholds{
		MSEEffMedium:        t.MSEEffMedium,
		MSEEffHigh:          t.MSEEffHigh,
		FlowBalanceHigh:     t.FlowBalanceHigh,
		FlowBalanceCritical: t.FlowBalanceCritical,
		PitRateHigh:         t.PitRateHigh,
		PitRateCritical:     t.PitRateCritical,
		TorqueDeltaMedium:   t.TorqueDeltaMedium,
		TorqueDeltaHigh:     t.TorqueDeltaHigh,
		ECDMarginHigh:       t.ECDMarginHigh,
		ECDMarginCritical:   t.ECDMarginCritical,
		SPPDeviationMedium:  t.SPPDeviationMedium,
		DExpTrendLow:        t.DExpTrendLow,
	}
}

func metricsOrNil(m *observability.Metrics) pipeline.Metrics {
	if m == nil {
		return nil
	}
	return m
}

func seedFromNodeID(nodeID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(nodeID))
	return h.Sum64()
}

func buildLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	return cfg.Build()
}
