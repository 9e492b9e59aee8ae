package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/kaspanet/chainconsensus/domain/consensus/blockdownload"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "reorgsim"

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error parsing command-line arguments: %s\n", err)
		os.Exit(1)
	}

	err = cfg.InitLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting log levels: %s\n", err)
		os.Exit(1)
	}
	defer log.Backend().Close()

	err = run(cfg)
	if err != nil {
		log.Criticalf("Simulation failed: %+v", err)
		log.Backend().Close()
		os.Exit(1)
	}
}

func run(cfg *simulationConfig) error {
	err := os.MkdirAll(cfg.DataDir, 0700)
	if err != nil {
		return errors.WithStack(err)
	}
	dbPath, err := os.MkdirTemp(cfg.DataDir, "reorgsim-")
	if err != nil {
		return errors.WithStack(err)
	}
	if !cfg.KeepDB {
		defer os.RemoveAll(dbPath)
	}

	result, err := runSimulation(cfg, dbPath, blockdownload.PrometheusMetrics(metricsNamespace))
	if err != nil {
		return err
	}

	log.Infof("Tip: %s at height %d", result.tipHash, result.tipHeight)
	log.Infof("Finalized block: %s at height %d", result.finalizedHash, result.finalizedHeight)
	log.Infof("Blocks connected: %d, disconnected: %d, peers banned: %v",
		result.connected, result.disconnected, result.bannedPeers)
	if cfg.KeepDB {
		log.Infof("Database kept at %s", filepath.Clean(dbPath))
	}
	if cfg.PrintBlockMetrics {
		err = printMetrics()
		if err != nil {
			return err
		}
	}

	return result.verify()
}

func printMetrics() error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return errors.WithStack(err)
	}
	for _, family := range families {
		if !strings.HasPrefix(family.GetName(), metricsNamespace+"_") {
			continue
		}
		for _, metric := range family.GetMetric() {
			switch {
			case metric.GetGauge() != nil:
				log.Infof("%s: %g", family.GetName(), metric.GetGauge().GetValue())
			case metric.GetCounter() != nil:
				log.Infof("%s: %g", family.GetName(), metric.GetCounter().GetValue())
			}
		}
	}
	return nil
}
