package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"txflow"
	"txflow/internal/adapters/gatewaysim"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "stats":
		err = statsCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("txflow-dispatch %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to dispatcher configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	flow, err := txflow.Conf(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// No live blockchain SDK ships with this build; run against the
	// in-memory gateway simulator until a real BlockchainGateway is wired in
	// via txflow.WithGateway.
	log.Printf("no blockchain gateway configured; using the in-memory simulator")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return flow.Run(ctx, txflow.WithGateway(gatewaysim.New()))
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := txflow.Conf(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func statsCommand(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := map[string]float64{
		"txflow_queue_length_total":       0,
		"txflow_batches_submitted_total":  0,
		"txflow_batches_dropped_total":    0,
		"txflow_operations_dropped_total": 0,
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %f", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] queue=%f submitted=%f dropped=%f ops_dropped=%f\n",
		time.Now().Format(time.RFC3339),
		targets["txflow_queue_length_total"],
		targets["txflow_batches_submitted_total"],
		targets["txflow_batches_dropped_total"],
		targets["txflow_operations_dropped_total"],
	)
	return nil
}

func printUsage() {
	fmt.Printf(`txflow-dispatch CLI

Usage:
  txflow-dispatch <command> [flags]

Commands:
  run        Start the dispatcher using the provided config
  validate   Load and validate a config file without starting the dispatcher
  stats      Poll the Prometheus metrics endpoint and print live counters

Examples:
  txflow-dispatch run -config ./data/config.yaml
  txflow-dispatch validate -config ./data/config.yaml
  txflow-dispatch stats -url http://localhost:9100/metrics -interval 1s
`)
}
