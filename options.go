package rendezvous

import (
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/ndyer/rendezvous/metrics"
)

// Options holds the closed set of configuration recognized by §4.G. Build
// one via NewOptions(opts...); do not construct it directly so defaults and
// validation are never bypassed.
type Options struct {
	UseInMemoryCoordination bool
	RemoteStoreEndpoint     string
	RemoteKeyPrefix         string
	DefaultTaskTimeout      time.Duration
	DefaultRetryBudget      int
	MaxConcurrentJobs       int
	JobExecutionTimeout     time.Duration
	JobRetentionPeriod      time.Duration
	CleanupInterval         time.Duration
	EnableConsoleLogging    bool
	EnableDetailedLogging   bool
	AutoDeleteSuccessfulJobs bool

	Logger  *zap.Logger
	Metrics metrics.Provider
}

// Option configures Options. Use NewOptions(opts...) to build a validated
// Options value; an Option that would put Options in an invalid state
// causes NewOptions to return an *envelope.RendezvousError of kind
// InvalidArgument naming the field, matching §4.G's fail-fast requirement.
type Option func(*Options)

// WithInMemoryCoordination selects the in-memory coordinator variant (§4.B).
func WithInMemoryCoordination() Option {
	return func(o *Options) { o.UseInMemoryCoordination = true }
}

// WithRemoteStoreEndpoint selects the distributed coordinator variant
// (§4.C) against the given endpoint.
func WithRemoteStoreEndpoint(endpoint string) Option {
	return func(o *Options) {
		o.UseInMemoryCoordination = false
		o.RemoteStoreEndpoint = endpoint
	}
}

// WithRemoteKeyPrefix overrides the default "hangfire-mediatr:" key prefix.
func WithRemoteKeyPrefix(prefix string) Option {
	return func(o *Options) { o.RemoteKeyPrefix = prefix }
}

// WithDefaultTaskTimeout overrides the default 30-minute task deadline.
func WithDefaultTaskTimeout(d time.Duration) Option {
	return func(o *Options) { o.DefaultTaskTimeout = d }
}

// WithDefaultRetryBudget overrides the default retry budget of 0 (a single
// attempt, no retries).
func WithDefaultRetryBudget(n int) Option {
	return func(o *Options) { o.DefaultRetryBudget = n }
}

// WithMaxConcurrentJobs overrides the default of processor_count * 5.
func WithMaxConcurrentJobs(n int) Option {
	return func(o *Options) { o.MaxConcurrentJobs = n }
}

// WithJobExecutionTimeout overrides the default 1-hour job execution bound.
func WithJobExecutionTimeout(d time.Duration) Option {
	return func(o *Options) { o.JobExecutionTimeout = d }
}

// WithJobRetentionPeriod overrides the default 7-day retention period.
func WithJobRetentionPeriod(d time.Duration) Option {
	return func(o *Options) { o.JobRetentionPeriod = d }
}

// WithCleanupInterval overrides the default 5-minute sweeper interval.
func WithCleanupInterval(d time.Duration) Option {
	return func(o *Options) { o.CleanupInterval = d }
}

// WithConsoleLogging toggles console logging (default true).
func WithConsoleLogging(enabled bool) Option {
	return func(o *Options) { o.EnableConsoleLogging = enabled }
}

// WithDetailedLogging toggles verbose/debug logging (default false).
func WithDetailedLogging(enabled bool) Option {
	return func(o *Options) { o.EnableDetailedLogging = enabled }
}

// WithAutoDeleteSuccessfulJobs toggles automatic deletion of successful job
// records from the Job Engine's own store (default false).
func WithAutoDeleteSuccessfulJobs(enabled bool) Option {
	return func(o *Options) { o.AutoDeleteSuccessfulJobs = enabled }
}

// WithLogger overrides the zap.Logger used for coordinator/bridge/sweeper
// diagnostics. Default is zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithMetrics overrides the metrics.Provider used to instrument the
// coordinator and bridge. Default is metrics.NewNoopProvider().
func WithMetrics(provider metrics.Provider) Option {
	return func(o *Options) { o.Metrics = provider }
}

// defaultOptions centralizes default values for Options, per §4.G.
func defaultOptions() Options {
	return Options{
		UseInMemoryCoordination:  false,
		RemoteKeyPrefix:          "hangfire-mediatr:",
		DefaultTaskTimeout:       30 * time.Minute,
		DefaultRetryBudget:       0,
		MaxConcurrentJobs:        runtime.NumCPU() * 5,
		JobExecutionTimeout:      time.Hour,
		JobRetentionPeriod:       7 * 24 * time.Hour,
		CleanupInterval:          5 * time.Minute,
		EnableConsoleLogging:     true,
		EnableDetailedLogging:    false,
		AutoDeleteSuccessfulJobs: false,
		Logger:                   zap.NewNop(),
		Metrics:                  metrics.NewNoopProvider(),
	}
}

// validateOptions performs the closed set of invariant checks from §4.G. It
// returns the first violation found, naming the failing field.
func validateOptions(o *Options) error {
	if !o.UseInMemoryCoordination && o.RemoteStoreEndpoint == "" {
		return invalidArgument("remote_store_endpoint", "required when not using in-memory coordination")
	}
	if o.RemoteKeyPrefix == "" {
		return invalidArgument("remote_key_prefix", "must be non-empty")
	}
	if o.DefaultTaskTimeout <= 0 {
		return invalidArgument("default_task_timeout", "must be > 0")
	}
	if o.DefaultRetryBudget < 0 {
		return invalidArgument("default_retry_budget", "must be >= 0")
	}
	if o.MaxConcurrentJobs <= 0 {
		return invalidArgument("max_concurrent_jobs", "must be > 0")
	}
	if o.JobExecutionTimeout <= 0 {
		return invalidArgument("job_execution_timeout", "must be > 0")
	}
	if o.JobRetentionPeriod <= 0 {
		return invalidArgument("job_retention_period", "must be > 0")
	}
	if o.CleanupInterval <= 0 {
		return invalidArgument("cleanup_interval", "must be > 0")
	}
	return nil
}

// NewOptions builds a validated Options from functional options. Any
// violation of the closed invariant set is returned as an
// *envelope.RendezvousError of kind InvalidArgument — no partially
// configured Options is ever returned (§8, property 10).
func NewOptions(opts ...Option) (Options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt == nil {
			return Options{}, invalidArgument("option", "nil option")
		}
		opt(&o)
	}
	if err := validateOptions(&o); err != nil {
		return Options{}, err
	}
	return o, nil
}
