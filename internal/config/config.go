// Package config provides configuration loading, validation, and hot-reload
// for the SAIREN-OS rig agent.
//
// Configuration file: /etc/sairen/config.yaml (default)
// Schema version: 1
//
// Hot-reload:
//   - Agent listens for SIGHUP.
//   - On SIGHUP: re-read and re-validate config.yaml.
//   - A valid file replaces the active snapshot. Only the federation loop
//     re-reads the snapshot (node_id and min_samples_for_upload, each tick);
//     thresholds, weights, log level and every other setting keep the
//     values read at startup.
//   - Destructive changes (DB path, federation hub address, console socket)
//     require restart.
//   - If the new config is invalid, the old config remains active and an
//     error is logged. The agent does NOT crash on invalid hot-reload config.
//
// Validation:
//   - All required fields must be present.
//   - Numeric ranges enforced (e.g. densities ∈ [0,1], weights ≥ 0).
//   - db_path must be non-empty; file paths are not checked for being
//     absolute.
//   - Invalid config on startup: agent refuses to start (fatal error).
//   - Invalid config on hot-reload: logged, old config retained.
package config

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// Version, GitCommit, BuildTime are injected by the Makefile via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Config is the root configuration structure for SAIREN-OS.
// All fields have defaults; see Defaults() for values.
type Config struct {
	// SchemaVersion must be "1". Future versions will trigger migration.
	SchemaVersion string `yaml:"schema_version"`

	// NodeID is a unique identifier for this rig node.
	// Used in federation checkpoint envelopes and storage keys.
	// Default: hostname.
	NodeID string `yaml:"node_id"`

	// Agent configures the pipeline coordinator's operational parameters.
	Agent AgentConfig `yaml:"agent"`

	// CfC configures both speeds of the dual liquid-time-constant network.
	CfC CfCConfig `yaml:"cfc"`

	// Cluster configures the regime k-means clusterer.
	Cluster ClusterConfig `yaml:"cluster"`

	// Baseline configures Welford baseline lock policy.
	Baseline BaselineConfig `yaml:"baseline"`

	// Tactical configures the tactical agent's trigger thresholds and
	// cooldown window.
	Tactical TacticalConfig `yaml:"tactical"`

	// Orchestrator holds specialist weights.
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`

	// Pipeline configures the coordinator's periodic summary interval and
	// cycle target.
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Federation configures the hub connection and the federation loop.
	Federation FederationConfig `yaml:"federation"`

	// Storage configures the BoltDB persistent store.
	Storage StorageConfig `yaml:"storage"`

	// Observability configures metrics and logging.
	Observability ObservabilityConfig `yaml:"observability"`

	// Operator configures the operator console Unix socket.
	Operator OperatorConfig `yaml:"operator"`

	// Well configures site-specific physics inputs for the current well.
	Well WellConfig `yaml:"well"`
}

// AgentConfig holds agent-level operational parameters.
type AgentConfig struct {
	// IngestQueueSize is validated (>= 16) but not read: packets pass from
	// the source to the pipeline coordinator without an in-memory queue,
	// and none are dropped or counted. Default: 2048.
	IngestQueueSize int `yaml:"ingest_queue_size"`

	// LightweightMode disables Prometheus metrics and federation uploads
	// to reduce resource consumption on low-power rig edge nodes.
	// Default: false.
	LightweightMode bool `yaml:"lightweight_mode"`
}

// OperatorConfig holds operator console parameters.
type OperatorConfig struct {
	// SocketPath is the Unix domain socket path for the operator console.
	// Permissions: 0600. Default: /run/sairen/operator.sock.
	SocketPath string `yaml:"socket_path"`

	// Enabled controls whether the operator socket is active.
	// Default: true.
	Enabled bool `yaml:"enabled"`
}

// WellConfig holds site-specific physics inputs that vary well to well
// and are not derived from telemetry: formation hardness and fracture
// gradient. Updated via UpdateFormationContext when a new well's survey
// data is loaded, not by hot-reload of this file.
type WellConfig struct {
	// Hardness is the formation hardness factor (0=soft, 1=hard) from
	// which the physics report derives the optimal MSE used for MSE
	// efficiency. Default: 1.0.
	Hardness float64 `yaml:"hardness"`

	// FractureGradient is the formation fracture gradient in ppg,
	// used to compute ECD margin. Default: 16.5.
	FractureGradient float64 `yaml:"fracture_gradient"`
}

// CfCConfig holds liquid-time-constant network parameters shared by the
// fast and slow speeds, plus per-speed overrides. They are validated but
// not read: internal/cfc and internal/wiring use their built-in
// FastConfig/SlowConfig schedules and default group sizes.
type CfCConfig struct {
	// InputSize is the number of WITS features fed to the network.
	// Default: 16.
	InputSize int `yaml:"input_size"`

	// GroupSizes partitions hidden units into NCP sensory/inter/command/
	// motor groups. Default: [16, 24, 12, 8].
	GroupSizes [4]int `yaml:"group_sizes"`

	// SparsityDensity is the fraction of possible synapses wired between
	// adjacent NCP groups. Range: (0, 1]. Default: 0.3.
	SparsityDensity float64 `yaml:"sparsity_density"`

	// Fast configures the fast-speed (per-packet) network.
	Fast CfCSpeedConfig `yaml:"fast"`

	// Slow configures the slow-speed (trend) network.
	Slow CfCSpeedConfig `yaml:"slow"`
}

// CfCSpeedConfig holds the BPTT training hyperparameters for one network
// speed.
type CfCSpeedConfig struct {
	// BPTTDepth is the number of unrolled timesteps for backprop through
	// time. Default: fast=8, slow=64.
	BPTTDepth int `yaml:"bptt_depth"`

	// LearningRate is the Adam base learning rate. Default: fast=1e-3,
	// slow=3e-4.
	LearningRate float64 `yaml:"learning_rate"`

	// LRDecay is the multiplicative decay applied to LearningRate every
	// LRDecaySteps training steps. Range: (0, 1]. Default: 0.999.
	LRDecay float64 `yaml:"lr_decay"`

	// LRDecaySteps is the number of training steps between LRDecay
	// applications. Default: 1000.
	LRDecaySteps int `yaml:"lr_decay_steps"`

	// GradientClip is the max L2 norm for gradient clipping.
	// Default: 1.0.
	GradientClip float64 `yaml:"gradient_clip"`
}

// ClusterConfig holds regime k-means clusterer parameters. They are
// validated but not read: the coordinator's clusterer uses built-in values.
type ClusterConfig struct {
	// K is the number of regime clusters. Default: 4.
	K int `yaml:"k"`

	// Dim is the feature dimensionality of cluster centroids.
	// Default: 16.
	Dim int `yaml:"dim"`

	// LearningRate is the online centroid-update step size.
	// Default: 0.05.
	LearningRate float64 `yaml:"learning_rate"`
}

// BaselineConfig holds Welford baseline lock policy parameters.
type BaselineConfig struct {
	// WindowSamples is the number of samples accumulated before a
	// baseline auto-locks. Default: 500.
	WindowSamples int64 `yaml:"window_samples"`

	// ContaminationDriftSigma is the post-lock drift threshold (in
	// sigmas of the locked distribution) past which a baseline is
	// flagged contaminated. Default: 2.0.
	ContaminationDriftSigma float64 `yaml:"contamination_drift_sigma"`

	// ContaminationMinSamples is the minimum number of post-lock samples
	// required before contamination is evaluated. Default: 50.
	ContaminationMinSamples int64 `yaml:"contamination_min_samples"`
}

// TacticalConfig holds the tactical agent's trigger thresholds and
// cooldown window.
type TacticalConfig struct {
	// MSEEffMedium, MSEEffHigh gate DrillingEfficiency tickets.
	// Default: 70, 50.
	MSEEffMedium float64 `yaml:"mse_eff_medium"`
	MSEEffHigh   float64 `yaml:"mse_eff_high"`

	// FlowBalanceHigh, FlowBalanceCritical gate WellControl tickets
	// (flow-out minus flow-in, gpm). Default: 10, 20.
	FlowBalanceHigh     float64 `yaml:"flow_balance_high"`
	FlowBalanceCritical float64 `yaml:"flow_balance_critical"`

	// PitRateHigh, PitRateCritical gate WellControl tickets (bbl/hr).
	// Default: 5, 15.
	PitRateHigh     float64 `yaml:"pit_rate_high"`
	PitRateCritical float64 `yaml:"pit_rate_critical"`

	// TorqueDeltaMedium, TorqueDeltaHigh gate Mechanical tickets
	// (fractional change between packets). Default: 0.15, 0.25.
	TorqueDeltaMedium float64 `yaml:"torque_delta_medium"`
	TorqueDeltaHigh   float64 `yaml:"torque_delta_high"`

	// ECDMarginHigh, ECDMarginCritical gate Hydraulics tickets (ppg
	// margin to fracture gradient). Default: 0.3, 0.1.
	ECDMarginHigh     float64 `yaml:"ecd_margin_high"`
	ECDMarginCritical float64 `yaml:"ecd_margin_critical"`

	// SPPDeviationMedium gates Hydraulics tickets (psi). Default: 100.
	SPPDeviationMedium float64 `yaml:"spp_deviation_medium"`

	// DExpTrendLow is passed to the tactical agent, but Formation tickets
	// fire on the physics engine's 15% dxc shift and are not compared
	// against it. Default: 0.15.
	DExpTrendLow float64 `yaml:"d_exp_trend_low"`

	// CategoryCooldown is the minimum time between non-Critical tickets
	// of the same category. Default: 60s. It is not passed to the
	// tactical agent, which uses a fixed 60s cooldown.
	CategoryCooldown time.Duration `yaml:"category_cooldown"`

	// CommissioningWindowPackets is the number of packets during which
	// baselines accumulate. Default: 500. It is not passed to the tactical
	// agent, which uses a fixed 500-packet window.
	CommissioningWindowPackets int64 `yaml:"commissioning_window_packets"`
}

// OrchestratorConfig holds specialist weights. They are validated but not
// read: the orchestrator uses its built-in base weights and regime factors.
type OrchestratorConfig struct {
	// SpecialistWeights are the base (pre-regime-adjustment) specialist
	// weights, keyed by specialist name.
	// Default: {mse: 0.25, hydraulic: 0.25, wellcontrol: 0.30,
	// formation: 0.20}.
	SpecialistWeights map[string]float64 `yaml:"specialist_weights"`
}

// PipelineConfig holds coordinator-level timing parameters. They are
// validated but not read: the coordinator and composer use built-in values.
type PipelineConfig struct {
	// HistoryCapacity is the number of recent packet/report pairs kept
	// in the coordinator's circular history buffer. Default: 60.
	HistoryCapacity int `yaml:"history_capacity"`

	// SummaryInterval is the period between synthesized periodic
	// summary advisories when no ticket fired. Default: 10m.
	SummaryInterval time.Duration `yaml:"summary_interval"`

	// CycleTarget is the soft wall-clock budget for one coordinator
	// cycle; exceeding it logs a warning. Default: 100ms.
	CycleTarget time.Duration `yaml:"cycle_target"`

	// CriticalCooldown is the minimum time between two Critical
	// advisories emitted by the composer. Default: 30s.
	CriticalCooldown time.Duration `yaml:"critical_cooldown"`
}

// FederationConfig holds checkpoint federation parameters.
type FederationConfig struct {
	// Enabled controls whether this node uploads/pulls checkpoints to/from
	// the federation hub. Default: false (standalone mode).
	Enabled bool `yaml:"enabled"`

	// HubAddr is the federation hub's gRPC address. Default: empty.
	HubAddr string `yaml:"hub_addr"`

	// UploadInterval is the period of the federation loop's tick.
	// Default: 15m.
	UploadInterval time.Duration `yaml:"upload_interval"`

	// MinSamplesForUpload is the minimum packets_processed the latest
	// checkpoint must report before the federation loop acts on it.
	// Default: 1000.
	MinSamplesForUpload int64 `yaml:"min_samples_for_upload"`

	// MinRigsForAveraging is validated (>= 1) but not read: the hub
	// averages once it holds uploads from 2 rigs. Default: 3.
	MinRigsForAveraging int `yaml:"min_rigs_for_averaging"`

	// MaxWeightDivergence is validated (> 0) but not read: the hub
	// applies no weight-divergence check to uploads. Default: 0.5.
	MaxWeightDivergence float64 `yaml:"max_weight_divergence"`

	// TLSCertFile, TLSKeyFile, TLSCAFile configure mutual TLS to the hub.
	TLSCertFile string `yaml:"tls_cert_file"`
	TLSKeyFile  string `yaml:"tls_key_file"`
	TLSCAFile   string `yaml:"tls_ca_file"`
}

// StorageConfig holds BoltDB parameters.
type StorageConfig struct {
	// DBPath is the absolute path to the BoltDB file.
	// Default: /var/lib/sairen/sairen.db.
	DBPath string `yaml:"db_path"`

	// CheckpointRetention is the number of past checkpoints kept per rig.
	// Default: 5.
	CheckpointRetention int `yaml:"checkpoint_retention"`
}

// ObservabilityConfig holds metrics and logging parameters.
type ObservabilityConfig struct {
	// MetricsAddr is the Prometheus metrics HTTP bind address.
	// Default: 127.0.0.1:9091.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls the minimum log level (debug, info, warn, error).
	// Default: info.
	LogLevel string `yaml:"log_level"`

	// LogFormat controls the log output format (json, console).
	// Default: json.
	LogFormat string `yaml:"log_format"`
}

// DefaultDBPath is the default BoltDB file location.
const DefaultDBPath = "/var/lib/sairen/sairen.db"

// Defaults returns a Config populated with all default values.
func Defaults() Config {
	hostname, _ := os.Hostname()
	return Config{
		SchemaVersion: "1",
		NodeID:        hostname,
		Agent: AgentConfig{
			IngestQueueSize: 2048,
		},
		CfC: CfCConfig{
			InputSize:       16,
			GroupSizes:      [4]int{16, 24, 12, 8},
			SparsityDensity: 0.3,
			Fast: CfCSpeedConfig{
				BPTTDepth: 8, LearningRate: 1e-3, LRDecay: 0.999,
				LRDecaySteps: 1000, GradientClip: 1.0,
			},
			Slow: CfCSpeedConfig{
				BPTTDepth: 64, LearningRate: 3e-4, LRDecay: 0.999,
				LRDecaySteps: 1000, GradientClip: 1.0,
			},
		},
		Cluster: ClusterConfig{
			K: 4, Dim: 16, LearningRate: 0.05,
		},
		Baseline: BaselineConfig{
			WindowSamples:           500,
			ContaminationDriftSigma: 2.0,
			ContaminationMinSamples: 50,
		},
		Tactical: TacticalConfig{
			MSEEffMedium: 70, MSEEffHigh: 50,
			FlowBalanceHigh: 10, FlowBalanceCritical: 20,
			PitRateHigh: 5, PitRateCritical: 15,
			TorqueDeltaMedium: 0.15, TorqueDeltaHigh: 0.25,
			ECDMarginHigh: 0.3, ECDMarginCritical: 0.1,
			SPPDeviationMedium:         100,
			DExpTrendLow:               0.15,
			CategoryCooldown:           60 * time.Second,
			CommissioningWindowPackets: 500,
		},
		Orchestrator: OrchestratorConfig{
			SpecialistWeights: map[string]float64{
				"mse": 0.25, "hydraulic": 0.25, "wellcontrol": 0.30, "formation": 0.20,
			},
		},
		Pipeline: PipelineConfig{
			HistoryCapacity:  60,
			SummaryInterval:  10 * time.Minute,
			CycleTarget:      100 * time.Millisecond,
			CriticalCooldown: 30 * time.Second,
		},
		Federation: FederationConfig{
			Enabled:             false,
			UploadInterval:      15 * time.Minute,
			MinSamplesForUpload: 1000,
			MinRigsForAveraging: 3,
			MaxWeightDivergence: 0.5,
		},
		Storage: StorageConfig{
			DBPath:              DefaultDBPath,
			CheckpointRetention: 5,
		},
		Observability: ObservabilityConfig{
			MetricsAddr: "127.0.0.1:9091",
			LogLevel:    "info",
			LogFormat:   "json",
		},
		Operator: OperatorConfig{
			Enabled:    true,
			SocketPath: "/run/sairen/operator.sock",
		},
		Well: WellConfig{
			Hardness:         1.0,
			FractureGradient: 16.5,
		},
	}
}

// Load reads and validates a config file from the given path.
// Returns the merged config (defaults overridden by file values).
// Returns an error if the file cannot be read, parsed, or validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse %q: %w", path, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks all config fields for correctness.
// Returns a descriptive error listing all violations found.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.SchemaVersion != "1" {
		errs = append(errs, fmt.Sprintf("schema_version must be \"1\", got %q", cfg.SchemaVersion))
	}
	if cfg.NodeID == "" {
		errs = append(errs, "node_id must not be empty")
	}
	if cfg.Agent.IngestQueueSize < 16 {
		errs = append(errs, fmt.Sprintf("agent.ingest_queue_size must be >= 16, got %d", cfg.Agent.IngestQueueSize))
	}
	if cfg.CfC.InputSize < 1 {
		errs = append(errs, "cfc.input_size must be >= 1")
	}
	if cfg.CfC.SparsityDensity <= 0.0 || cfg.CfC.SparsityDensity > 1.0 {
		errs = append(errs, fmt.Sprintf("cfc.sparsity_density must be in (0.0, 1.0], got %f", cfg.CfC.SparsityDensity))
	}
	for _, speed := range []struct {
		name string
		c    CfCSpeedConfig
	}{{"fast", cfg.CfC.Fast}, {"slow", cfg.CfC.Slow}} {
		if speed.c.BPTTDepth < 1 {
			errs = append(errs, fmt.Sprintf("cfc.%s.bptt_depth must be >= 1, got %d", speed.name, speed.c.BPTTDepth))
		}
		if speed.c.LearningRate <= 0 {
			errs = append(errs, fmt.Sprintf("cfc.%s.learning_rate must be > 0, got %f", speed.name, speed.c.LearningRate))
		}
		if speed.c.LRDecay <= 0 || speed.c.LRDecay > 1.0 {
			errs = append(errs, fmt.Sprintf("cfc.%s.lr_decay must be in (0.0, 1.0], got %f", speed.name, speed.c.LRDecay))
		}
		if speed.c.GradientClip <= 0 {
			errs = append(errs, fmt.Sprintf("cfc.%s.gradient_clip must be > 0, got %f", speed.name, speed.c.GradientClip))
		}
	}
	if cfg.Cluster.K < 2 {
		errs = append(errs, fmt.Sprintf("cluster.k must be >= 2, got %d", cfg.Cluster.K))
	}
	if cfg.Cluster.Dim < 1 {
		errs = append(errs, "cluster.dim must be >= 1")
	}
	if cfg.Baseline.WindowSamples < 2 {
		errs = append(errs, fmt.Sprintf("baseline.window_samples must be >= 2, got %d", cfg.Baseline.WindowSamples))
	}
	if cfg.Tactical.CategoryCooldown < 0 {
		errs = append(errs, "tactical.category_cooldown must be >= 0")
	}
	weightSum := 0.0
	for name, w := range cfg.Orchestrator.SpecialistWeights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("orchestrator.specialist_weights[%s] must be >= 0, got %f", name, w))
		}
		weightSum += w
	}
	if len(cfg.Orchestrator.SpecialistWeights) > 0 && weightSum <= 0 {
		errs = append(errs, "orchestrator.specialist_weights must sum to a positive value")
	}
	if cfg.Pipeline.HistoryCapacity < 1 {
		errs = append(errs, "pipeline.history_capacity must be >= 1")
	}
	if cfg.Pipeline.SummaryInterval < time.Second {
		errs = append(errs, fmt.Sprintf("pipeline.summary_interval must be >= 1s, got %s", cfg.Pipeline.SummaryInterval))
	}
	if cfg.Storage.DBPath == "" {
		errs = append(errs, "storage.db_path must not be empty")
	}
	if cfg.Storage.CheckpointRetention < 1 {
		errs = append(errs, "storage.checkpoint_retention must be >= 1")
	}
	if cfg.Federation.Enabled {
		if cfg.Federation.HubAddr == "" {
			errs = append(errs, "federation.hub_addr is required when federation is enabled")
		}
		if cfg.Federation.TLSCertFile == "" || cfg.Federation.TLSKeyFile == "" || cfg.Federation.TLSCAFile == "" {
			errs = append(errs, "federation.tls_cert_file, tls_key_file, and tls_ca_file are required when federation is enabled")
		}
		if cfg.Federation.MinRigsForAveraging < 1 {
			errs = append(errs, "federation.min_rigs_for_averaging must be >= 1")
		}
		if cfg.Federation.MaxWeightDivergence <= 0 {
			errs = append(errs, "federation.max_weight_divergence must be > 0")
		}
	}
	if cfg.Agent.LightweightMode && cfg.Federation.Enabled {
		errs = append(errs, "agent.lightweight_mode=true is incompatible with federation.enabled=true")
	}
	if cfg.Well.Hardness <= 0 {
		errs = append(errs, fmt.Sprintf("well.hardness must be > 0, got %f", cfg.Well.Hardness))
	}
	if cfg.Well.FractureGradient <= 0 {
		errs = append(errs, fmt.Sprintf("well.fracture_gradient must be > 0, got %f", cfg.Well.FractureGradient))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s",
			joinStrings(errs, "\n  - "))
	}
	return nil
}

// joinStrings joins a slice of strings with a separator.
func joinStrings(ss []string, sep string) string {
	if len(ss) == 0 {
		return ""
	}
	result := ss[0]
	for _, s := range ss[1:] {
		result += sep + s
	}
	return result
}

// AtomicConfig holds a hot-reloadable Config behind an atomic pointer.
// Publishers build a new immutable *Config and Store it; readers Load a
// snapshot and never observe a half-updated struct.
type AtomicConfig struct {
	ptr atomic.Pointer[Config]
}

// NewAtomicConfig creates an AtomicConfig initialized with cfg.
func NewAtomicConfig(cfg Config) *AtomicConfig {
	ac := &AtomicConfig{}
	ac.ptr.Store(&cfg)
	return ac
}

// Load returns the current config snapshot. Safe for concurrent use.
func (ac *AtomicConfig) Load() *Config {
	return ac.ptr.Load()
}

// Reload reads and validates the config file at path and, if valid,
// atomically swaps it in. On validation or read failure, the previously
// active config is retained and the error is returned for the caller to
// log.
func (ac *AtomicConfig) Reload(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return fmt.Errorf("config.Reload: %w", err)
	}
	ac.ptr.Store(cfg)
	return nil
}
