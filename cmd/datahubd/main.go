// Command datahubd wires a Hub to its configured destinations and
// producers and runs it until terminated, grounded on the teacher's
// cmd/main.go + internal/app/app.go (flag/env config path resolution,
// logrus setup, signal-driven graceful shutdown, Prometheus endpoint).
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Nico26-sw/legato-Service-DataHub/internal/config"
	"github.com/Nico26-sw/legato-Service-DataHub/internal/destination"
	"github.com/Nico26-sw/legato-Service-DataHub/internal/hub"
	"github.com/Nico26-sw/legato-Service-DataHub/internal/metrics"
	"github.com/Nico26-sw/legato-Service-DataHub/internal/producer"
	"github.com/Nico26-sw/legato-Service-DataHub/internal/snapshot"
	"github.com/Nico26-sw/legato-Service-DataHub/internal/tree"
	"github.com/Nico26-sw/legato-Service-DataHub/pkg/clock"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "", "Path to configuration file")
	var metricsAddr string
	flag.StringVar(&metricsAddr, "metrics-addr", ":9090", "Prometheus metrics listen address")
	flag.Parse()

	if configFile == "" {
		if env := os.Getenv("DATAHUB_CONFIG_FILE"); env != "" {
			configFile = env
		} else {
			configFile = "/etc/datahub/config.yaml"
		}
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := run(configFile, metricsAddr, log); err != nil {
		log.WithError(err).Fatal("datahubd exited with error")
	}
}

func run(configFile, metricsAddr string, log *logrus.Logger) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dests := destination.NewRegistry(log)
	if err := wireDestinations(ctx, cfg, dests, log); err != nil {
		return fmt.Errorf("wire destinations: %w", err)
	}

	h := hub.New(hub.Config{
		NonStringCapacity: cfg.Pool.NonStringCapacity,
		LargeStringBlocks: cfg.Pool.LargeStringBlocks,
		CommandQueueDepth: cfg.CommandQueueDepth,
		NameLimit:         cfg.NameLimit,
	}, clock.System{}, dests, log)

	go h.Run(ctx)

	tails := startProducers(ctx, cfg, h, log)
	defer func() {
		for _, t := range tails {
			t.Stop()
		}
	}()

	if cfg.Routing.ObservationArchive != "" {
		log.WithField("destination", cfg.Routing.ObservationArchive).Info("observation archive destination configured")
	}

	watcher, err := config.NewWatcher(configFile, cfg.Routing, func(rd config.RoutingDefaults) {
		log.WithField("default_destination", rd.DefaultOutputDestination).Info("routing defaults updated")
	}, log)
	if err != nil {
		log.WithError(err).Warn("routing-defaults hot reload disabled")
	} else {
		go watcher.Run()
		defer watcher.Close()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: metricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("metrics server error")
		}
	}()

	driver := snapshot.NewDriver(h)
	go runSnapshotLoop(ctx, driver, log)
	go runMetricsPollLoop(ctx, h)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	cancel()
	dests.StopAll()
	h.Wait()
	return nil
}

func wireDestinations(ctx context.Context, cfg *config.Config, dests *destination.Registry, log *logrus.Logger) error {
	for _, dc := range cfg.Destinations {
		switch {
		case dc.Kafka != nil:
			d, err := destination.NewKafka(destination.KafkaConfig{
				Brokers:      dc.Kafka.Brokers,
				Topic:        dc.Kafka.Topic,
				Compression:  dc.Kafka.Compression,
				RequiredAcks: dc.Kafka.RequiredAcks,
				QueueSize:    dc.Kafka.QueueSize,
				Auth: destination.KafkaAuthConfig{
					Enabled:   dc.Kafka.Auth.Enabled,
					Username:  dc.Kafka.Auth.Username,
					Password:  dc.Kafka.Auth.Password,
					Mechanism: dc.Kafka.Auth.Mechanism,
				},
			}, log)
			if err != nil {
				return err
			}
			if err := dests.Register(ctx, dc.Name, d); err != nil {
				return err
			}
		case dc.Elastic != nil:
			d, err := destination.NewElastic(destination.ElasticConfig{
				Hosts:       dc.Elastic.Hosts,
				IndexPrefix: dc.Elastic.IndexPrefix,
				BatchSize:   dc.Elastic.BatchSize,
				Username:    dc.Elastic.Username,
				Password:    dc.Elastic.Password,
			}, log)
			if err != nil {
				return err
			}
			if err := dests.Register(ctx, dc.Name, d); err != nil {
				return err
			}
		case dc.LocalFile != nil:
			d, err := destination.NewLocalFile(destination.LocalFileConfig{
				Path:       dc.LocalFile.Path,
				MaxSizeMB:  dc.LocalFile.MaxSizeMB,
				MaxBackups: dc.LocalFile.MaxBackups,
			}, log)
			if err != nil {
				return err
			}
			if err := dests.Register(ctx, dc.Name, d); err != nil {
				return err
			}
		default:
			return fmt.Errorf("destination %q: no backend configured", dc.Name)
		}
	}
	return nil
}

// startProducers starts one FileTail producer per configured entry,
// logging and skipping any that fail to start rather than aborting the
// whole launch over one bad tail target.
func startProducers(ctx context.Context, cfg *config.Config, h *hub.Hub, log *logrus.Logger) []*producer.FileTail {
	var started []*producer.FileTail
	for _, pc := range cfg.Producers {
		ft := producer.NewFileTail(pc.Filename, pc.Path, pc.SeekEnd, h, log)
		if err := ft.Start(ctx); err != nil {
			log.WithError(err).WithField("file", pc.Filename).Warn("producer failed to start")
			continue
		}
		started = append(started, ft)
	}
	return started
}

// runMetricsPollLoop periodically samples the hub's entry-tree
// population and pool utilization onto the Prometheus gauges, since
// neither is driven by an event the hub already emits on its own.
func runMetricsPollLoop(ctx context.Context, h *hub.Hub) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	var lastDenied [4]int64
	observe := func(class string, idx int, s func() (int64, int64)) {
		inUse, denied := s()
		delta := denied - lastDenied[idx]
		lastDenied[idx] = denied
		metrics.ObservePoolStats(class, inUse, delta)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for t, n := range h.EntryCounts() {
				metrics.EntryCount.WithLabelValues(entryTypeName(t)).Set(float64(n))
			}
			nonString, small, medium, large := h.PoolStats()
			observe("non_string", 0, func() (int64, int64) { return nonString.InUse, nonString.Denied })
			observe("string_small", 1, func() (int64, int64) { return small.InUse, small.Denied })
			observe("string_medium", 2, func() (int64, int64) { return medium.InUse, medium.Denied })
			observe("string_large", 3, func() (int64, int64) { return large.InUse, large.Denied })
		}
	}
}

func entryTypeName(t tree.Type) string {
	switch t {
	case tree.TypeNamespace:
		return "namespace"
	case tree.TypePlaceholder:
		return "placeholder"
	case tree.TypeInput:
		return "input"
	case tree.TypeOutput:
		return "output"
	case tree.TypeObservation:
		return "observation"
	default:
		return "unknown"
	}
}

func runSnapshotLoop(ctx context.Context, driver *snapshot.Driver, log *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := driver.Run(discardWriter{}); err != nil {
				log.WithError(err).Warn("snapshot cycle failed")
			}
		}
	}
}

// discardWriter is a placeholder sink for the periodic snapshot's
// output; a real deployment would point this at whatever persists
// snapshots, which is out of scope here (spec.md Non-goals excludes
// the on-disk persistence format).
type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
