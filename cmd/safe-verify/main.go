// Command safe-verify reads an Evidence Package from a JSON file and
// prints a VerificationReport. It is a thin host around pkg/verify: all
// flags only configure the surrounding process (logging, registry,
// metrics), never verification semantics. The warning threshold comes
// from the environment (see pkg/config).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/certen/safe-evidence-verifier/pkg/config"
	"github.com/certen/safe-evidence-verifier/pkg/evidence"
	"github.com/certen/safe-evidence-verifier/pkg/logging"
	"github.com/certen/safe-evidence-verifier/pkg/metrics"
	"github.com/certen/safe-evidence-verifier/pkg/registry"
	"github.com/certen/safe-evidence-verifier/pkg/verify"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "safe-verify: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("safe-verify", flag.ContinueOnError)
	registryPath := fs.String("registry", "", "path to a YAML address-label registry")
	metricsAddr := fs.String("metrics-addr", "", "address to serve Prometheus metrics on, e.g. :9090")
	logLevel := fs.String("log-level", "", "override SAFE_VERIFY_LOG_LEVEL")
	logFormat := fs.String("log-format", "", "override SAFE_VERIFY_LOG_FORMAT")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: safe-verify [flags] <evidence-package.json>")
	}
	packagePath := fs.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *registryPath != "" {
		cfg.RegistryPath = *registryPath
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFormat != "" {
		cfg.LogFormat = *logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(&logging.Config{
		Level:  logging.LevelFromString(cfg.LogLevel),
		Format: cfg.LogFormat,
		Output: "stderr",
	})
	if err != nil {
		return err
	}

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: m.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	reg := registry.Empty()
	if cfg.RegistryPath != "" {
		reg, err = registry.Load(cfg.RegistryPath)
		if err != nil {
			return fmt.Errorf("loading registry: %w", err)
		}
	}

	threshold, ok := new(big.Int).SetString(cfg.WarningValueThresholdWei, 10)
	if !ok {
		threshold = big.NewInt(0)
	}

	raw, err := os.ReadFile(packagePath)
	if err != nil {
		return fmt.Errorf("reading evidence package: %w", err)
	}

	ev, verrs := evidence.Parse(raw)
	if len(verrs) > 0 {
		logger.Error("evidence package failed schema validation", "error_count", len(verrs))
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			SchemaErrors interface{} `json:"schemaErrors"`
		}{SchemaErrors: verrs})
	}

	start := time.Now()
	report, err := verify.Verify(context.Background(), ev, verify.Options{
		Registry:              reg,
		WarningValueThreshold: threshold,
	})
	duration := time.Since(start)
	if err != nil {
		m.ObserveVerification("error", duration)
		return fmt.Errorf("verifying evidence package: %w", err)
	}

	outcome := "verified"
	if !report.HashMatch {
		outcome = "hash-mismatch"
	}
	m.ObserveVerification(outcome, duration)
	for _, sig := range report.Signatures {
		m.ObserveSignature(string(sig.Status))
	}

	logger.Info("verification complete",
		"report_id", report.ReportID.String(),
		"hash_match", report.HashMatch,
		"signature_count", len(report.Signatures),
		"duration", duration,
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
