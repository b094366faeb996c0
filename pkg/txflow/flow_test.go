package txflow

import (
	"context"
	"testing"
	"time"

	"txflow/internal/adapters/gatewaysim"
	"txflow/internal/adapters/memregistry"
	"txflow/internal/adapters/memsettings"
	"txflow/internal/app/config"
	"txflow/internal/domain"
	"txflow/internal/ports"
)

type stubObservability struct{}

func (stubObservability) LogInfo(msg string, fields ...ports.Field)                {}
func (stubObservability) LogError(msg string, err error, fields ...ports.Field)    {}
func (stubObservability) LogCritical(msg string, err error, fields ...ports.Field) {}
func (stubObservability) IncCounter(name string, v float64)                        {}
func (stubObservability) ObserveLatency(name string, seconds float64)              {}
func (stubObservability) SetGauge(name string, v float64)                          {}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{Metrics: config.MetricsConfig{Addr: ""}}
	return cfg
}

func TestConfFromConfigAndCapabilitiesBuilder(t *testing.T) {
	cfg := testConfig(t)

	flow, err := ConfFromConfig(cfg)
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}
	if flow.Config() != cfg {
		t.Fatalf("expected Config to be returned verbatim")
	}

	gw := gatewaysim.New()
	settings := memsettings.New()
	distReg := memregistry.New()

	d, err := flow.Capabilities(
		WithGateway(gw),
		WithSettingsStore(settings),
		WithDistributorRegistry(distReg),
		WithObservability(stubObservability{}),
	)
	if err != nil {
		t.Fatalf("Capabilities returned error: %v", err)
	}
	if d == nil {
		t.Fatalf("expected a non-nil Dispatcher")
	}
}

func TestCapabilitiesRequiresGateway(t *testing.T) {
	cfg := testConfig(t)
	flow, err := ConfFromConfig(cfg)
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}
	if _, err := flow.Capabilities(); err == nil {
		t.Fatalf("expected an error when no gateway is supplied")
	}
}

func TestFlowRunStartsAndShutsDownCleanly(t *testing.T) {
	cfg := testConfig(t)
	distReg := memregistry.New()
	distReg.SetDistributor(1, "pub1|sec1", true)

	flow, err := ConfFromConfig(cfg)
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err = flow.Run(ctx,
		WithGateway(gatewaysim.New()),
		WithSettingsStore(memsettings.New()),
		WithDistributorRegistry(distReg),
		WithObservability(stubObservability{}),
	)
	if err != nil && err != context.Canceled {
		t.Fatalf("Run returned unexpected error: %v", err)
	}
}

func TestSubmitRoutesThroughDispatcher(t *testing.T) {
	cfg := testConfig(t)
	gw := gatewaysim.New()
	distReg := memregistry.New()
	distReg.SetDistributor(1, "pub1|sec1", true)

	flow, err := ConfFromConfig(cfg)
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}
	d, err := flow.Capabilities(
		WithGateway(gw),
		WithSettingsStore(memsettings.New()),
		WithDistributorRegistry(distReg),
		WithObservability(stubObservability{}),
	)
	if err != nil {
		t.Fatalf("Capabilities returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
		defer shutdownCancel()
		_ = d.Shutdown(shutdownCtx)
	}()

	ops := []*domain.Operation{{Destination: "dest", Asset: domain.Asset{}, Amount: 10, Type: domain.OpDirectPayment}}
	if err := d.Submit(ctx, ops, "memo", "tag"); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for len(gw.Calls()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if len(gw.Calls()) == 0 {
		t.Fatalf("expected the gateway to observe a SendMany call")
	}
}
