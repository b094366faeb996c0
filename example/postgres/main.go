// example/postgres runs the dispatcher against a real Postgres-backed
// SettingsStore and DistributorRegistry, loading connection details from
// YAML the way the teacher's example/basic loads its edge config.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"txflow"
	"txflow/internal/adapters/gatewaysim"
)

func main() {
	flow, err := txflow.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Swap gatewaysim.New() for a real BlockchainGateway implementation to
	// move assets on a live network; settings and the distributor fleet are
	// read from the postgres.conn_string in config.yaml.
	if err := flow.Run(ctx, txflow.WithGateway(gatewaysim.New())); err != nil && err != context.Canceled {
		log.Fatalf("dispatcher exited: %v", err)
	}
}
