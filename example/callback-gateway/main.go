// example/callback-gateway demonstrates wiring a BlockchainGateway from
// plain functions instead of a struct, grounded in the teacher's
// example/callback (a sink built from a single callback function).
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"txflow"
	"txflow/internal/adapters/gatewaycallback"
	"txflow/internal/adapters/memregistry"
	"txflow/internal/adapters/memsettings"
	"txflow/internal/domain"
)

func main() {
	flow, err := txflow.ConfFromConfig(&txflow.Config{})
	if err != nil {
		log.Fatalf("build flow: %v", err)
	}

	distributors := memregistry.New()
	distributors.SetDistributor(1, "distributor-pub|distributor-secret", true)

	gw := gatewaycallback.New("stdout", gatewaycallback.Funcs{
		SendMany: func(ctx context.Context, distributor domain.Credential, ops []*domain.Operation, memo string) (string, error) {
			for _, op := range ops {
				log.Printf("send %.2f %s -> %s (memo=%s)", op.Amount, op.Asset.Code, op.Destination, memo)
			}
			return "stdout-tx", nil
		},
	})

	d, err := flow.Capabilities(
		txflow.WithGateway(gw),
		txflow.WithSettingsStore(memsettings.New()),
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

	ops := []*txflow.Operation{{Destination: "GDEST", Amount: 3, Type: txflow.OpDirectPayment}}
	if err := d.Submit(ctx, ops, "example-callback", "demo"); err != nil {
		log.Fatalf("submit: %v", err)
	}

	time.Sleep(500 * time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}
