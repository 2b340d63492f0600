package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-logr/logr/funcr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cloudplane/cloudplane/internal/engine"
	"github.com/cloudplane/cloudplane/internal/provisioning"
	"github.com/cloudplane/cloudplane/internal/provisioning/compute"
)

// Apply provisions every resource the spec declares.
//
// The workflow:
//  1. Load and validate the spec
//  2. Open the graph store and take the run lock
//  3. Run the stage levels in dependency order
//  4. Persist the graph and print the run summary
//
// A non-nil error means at least one node failed; the persisted graph
// records which.
func Apply(ctx context.Context, specPath, metricsListen string, logJSON bool) error {
	s, err := loadSpec(specFile(specPath))
	if err != nil {
		return err
	}

	st, err := openStore(s)
	if err != nil {
		return err
	}

	provider, err := newProvider(ctx, s)
	if err != nil {
		return err
	}

	metrics := provisioning.NopMetrics()
	if metricsListen != "" {
		registry := prometheus.NewRegistry()
		metrics = provisioning.NewMetrics(registry)
		server := &http.Server{
			Addr:              metricsListen,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("metrics server: %v", err)
			}
		}()
		defer func() { _ = server.Close() }()
	}

	eng := engine.New(engine.Options{
		Spec:     s,
		Store:    st,
		Provider: provider,
		Observer: newObserver(logJSON),
		Metrics:  metrics,
		Health:   compute.APIServerHealth{},
	})

	g, err := eng.Apply(ctx)
	if g != nil {
		fmt.Print(g.Summary())
	}
	if err != nil {
		return fmt.Errorf("apply failed: %w", err)
	}

	log.Printf("Cluster %s is provisioned. Run 'cloudplane output' for endpoints.", s.ClusterName)
	return nil
}

// newObserver picks the run observer: one JSON object per event through a
// funcr logger, or plain console lines.
func newObserver(logJSON bool) provisioning.Observer {
	if !logJSON {
		return provisioning.NewConsoleObserver()
	}
	return provisioning.NewLogrObserver(funcr.NewJSON(func(obj string) {
		fmt.Println(obj)
	}, funcr.Options{}))
}
