package txflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"txflow/internal/adapters/memregistry"
	"txflow/internal/adapters/memsettings"
	"txflow/internal/adapters/observability"
	"txflow/internal/adapters/registrypg"
	"txflow/internal/adapters/settingspg"
	"txflow/internal/app/config"
	"txflow/internal/domain"
	"txflow/internal/ports"
	"txflow/internal/registry"
)

// DispatcherOption customizes the dependencies a Dispatcher is built with.
type DispatcherOption func(*runtimeOverrides)

type runtimeOverrides struct {
	gateway             ports.BlockchainGateway
	settings            ports.SettingsStore
	distributorRegistry ports.DistributorRegistry
	obs                 ports.Observability
	registryOpts        []registry.Option
}

// WithGateway injects the BlockchainGateway used to actually move assets.
// There is no default: a production Dispatcher always needs a caller-
// supplied gateway (a live network client, or gatewaysim.New() for
// quick-start programs and tests).
func WithGateway(gw ports.BlockchainGateway) DispatcherOption {
	return func(o *runtimeOverrides) { o.gateway = gw }
}

// WithSettingsStore overrides the default SettingsStore (Postgres-backed when
// postgres.conn_string is set, in-memory otherwise).
func WithSettingsStore(s ports.SettingsStore) DispatcherOption {
	return func(o *runtimeOverrides) { o.settings = s }
}

// WithDistributorRegistry overrides the default DistributorRegistry
// (Postgres-backed when postgres.conn_string is set, in-memory otherwise).
func WithDistributorRegistry(d ports.DistributorRegistry) DispatcherOption {
	return func(o *runtimeOverrides) { o.distributorRegistry = d }
}

// WithObservability overrides the default Prometheus-backed Observability.
func WithObservability(obs ports.Observability) DispatcherOption {
	return func(o *runtimeOverrides) { o.obs = obs }
}

// WithRegistryOptions forwards registry.Option values to the internally
// built DispatcherRegistry (credential decoder, refresh interval, queue
// policy, actuator tuning).
func WithRegistryOptions(opts ...registry.Option) DispatcherOption {
	return func(o *runtimeOverrides) { o.registryOpts = append(o.registryOpts, opts...) }
}

// Dispatcher wires a DispatcherRegistry, an optional Postgres connection, and
// an optional metrics HTTP server into one lifecycle, grounded in the
// teacher's EdgeRuntime.
type Dispatcher struct {
	cfg         *config.Config
	reg         *registry.Registry
	obs         ports.Observability
	db          *sql.DB
	metricsSrv  *http.Server
	gaugeStopCh chan struct{}
}

// NewDispatcher bootstraps the default adapters from cfg: Postgres-backed
// settings and distributor registry when cfg.Postgres.ConnString is set,
// in-memory ones otherwise, and Prometheus observability. Callers use
// DispatcherOption values to supply the gateway and to replace any of the
// default adapters.
func NewDispatcher(cfg *config.Config, opts ...DispatcherOption) (*Dispatcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	if overrides.gateway == nil {
		return nil, fmt.Errorf("a blockchain gateway is required: pass txflow.WithGateway")
	}

	obs := overrides.obs
	if obs == nil {
		obs = observability.NewPromObs()
	}

	var db *sql.DB
	settings := overrides.settings
	distributorRegistry := overrides.distributorRegistry

	if settings == nil || distributorRegistry == nil {
		if cfg.Postgres.ConnString != "" {
			var err error
			db, err = sql.Open("postgres", cfg.Postgres.ConnString)
			if err != nil {
				return nil, err
			}
			if settings == nil {
				settings = settingspg.New(db)
			}
			if distributorRegistry == nil {
				distributorRegistry = registrypg.New(db)
			}
		} else {
			if settings == nil {
				settings = memsettings.New()
			}
			if distributorRegistry == nil {
				distributorRegistry = memregistry.New()
			}
		}
	}

	refreshInterval := cfg.Registry.RefreshInterval
	if refreshInterval <= 0 {
		refreshInterval = registry.DefaultRefreshInterval
	}
	queuePolicy := cfg.Queue
	queuePolicy.ApplyDefaults()

	registryOpts := append([]registry.Option{registry.WithRefreshInterval(refreshInterval), registry.WithQueuePolicy(queuePolicy)}, overrides.registryOpts...)
	reg := registry.New(overrides.gateway, settings, distributorRegistry, obs, registryOpts...)

	return &Dispatcher{cfg: cfg, reg: reg, obs: obs, db: db}, nil
}

// Start seeds the initial distributor/issuer set, begins the periodic
// refresh loop, and exposes /metrics and /healthz if cfg.Metrics.Addr is set.
func (d *Dispatcher) Start(ctx context.Context) error {
	if err := d.reg.Start(ctx); err != nil {
		return err
	}
	if d.cfg.Metrics.Addr != "" {
		d.startMetrics()
	}
	return nil
}

// Submit admits ops for dispatch, chunked and load-balanced across the
// active distributor fleet. See registry.Registry.Submit.
func (d *Dispatcher) Submit(ctx context.Context, ops []*domain.Operation, memo, tag string) error {
	return d.reg.Submit(ctx, ops, memo, tag)
}

// Run starts the Dispatcher and blocks until ctx is cancelled, then performs
// a graceful shutdown bounded by a fixed grace period.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return d.Shutdown(shutdownCtx)
}

// Shutdown drains every distributor queue, bounded by ctx, then stops the
// metrics server and closes the Postgres connection if one was opened.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	var errs []error

	if err := d.reg.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	if d.gaugeStopCh != nil {
		close(d.gaugeStopCh)
	}

	if d.metricsSrv != nil {
		if err := d.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	if d.db != nil {
		if err := d.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// QueueCount reports the number of active distributor queues.
func (d *Dispatcher) QueueCount() int { return d.reg.QueueCount() }

// TotalQueuedBatches reports the sum of queued (not yet sent) batches across
// every distributor queue.
func (d *Dispatcher) TotalQueuedBatches() int { return d.reg.TotalQueuedBatches() }

func (d *Dispatcher) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	d.metricsSrv = &http.Server{
		Addr:    d.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := d.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()

	d.gaugeStopCh = make(chan struct{})
	go d.recordQueueGauge(d.gaugeStopCh, time.Second)
}

func (d *Dispatcher) recordQueueGauge(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			d.obs.SetGauge("txflow_queue_length_total", float64(d.reg.TotalQueuedBatches()))
		}
	}
}
