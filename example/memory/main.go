// example/memory runs the dispatcher entirely in memory: no YAML file, no
// Postgres, a scripted gateway, and a hand-seeded distributor fleet. Useful
// for trying out Submit without standing up any infrastructure, grounded in
// the teacher's example/basic (Conf → flow.Run against signal.NotifyContext).
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"txflow"
	"txflow/internal/adapters/gatewaysim"
	"txflow/internal/adapters/memregistry"
	"txflow/internal/adapters/memsettings"
)

func main() {
	cfg := &txflow.Config{}

	flow, err := txflow.ConfFromConfig(cfg)
	if err != nil {
		log.Fatalf("build flow: %v", err)
	}

	settings := memsettings.New()
	settings.SetIssuerCredential(txflow.Credential{PublicKey: "issuer-pub", Secret: "issuer-secret"})

	distributors := memregistry.New()
	distributors.SetDistributor(1, "distributor1-pub|distributor1-secret", true)
	distributors.SetDistributor(2, "distributor2-pub|distributor2-secret", true)

	gw := gatewaysim.New()

	d, err := flow.Capabilities(
		txflow.WithGateway(gw),
		txflow.WithSettingsStore(settings),
		txflow.WithDistributorRegistry(distributors),
	)
	if err != nil {
		log.Fatalf("build dispatcher: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.Start(ctx); err != nil {
		log.Fatalf("start dispatcher: %v", err)
	}

	ops := []*txflow.Operation{
		{Destination: "GDEST1", Amount: 12.5, Type: txflow.OpDirectPayment},
		{Destination: "GDEST2", Amount: 7, Type: txflow.OpDirectPayment},
	}
	if err := d.Submit(ctx, ops, "example-memory", "demo"); err != nil {
		log.Fatalf("submit: %v", err)
	}

	time.Sleep(500 * time.Millisecond)
	log.Printf("gateway observed %d calls", len(gw.Calls()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}
