/*
Copyright © 2025 Denis Khalturin
All rights reserved.

Redistribution and use in source and binary forms, with or without
modification, are permitted provided that the following conditions are met:

1. Redistributions of source code must retain the above copyright notice,
   this list of conditions and the following disclaimer.

2. Redistributions in binary form must reproduce the above copyright notice,
   this list of conditions and the following disclaimer in the documentation
   and/or other materials provided with the distribution.

3. Neither the name of the copyright holder nor the names of its contributors
   may be used to endorse or promote products derived from this software
   without specific prior written permission.

THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
POSSIBILITY OF SUCH DAMAGE.
*/
// prettier-ignore-end
package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"schemapin/internal/config"
	"schemapin/internal/discovery"
	"schemapin/internal/metrics"
	"schemapin/internal/pinstore"
	"schemapin/internal/pinstore/types"
	"schemapin/internal/revocation"
	"schemapin/internal/server"
	"schemapin/internal/signing"
	"schemapin/internal/skill"
)

// App represents the main application structure that orchestrates all
// components of the `schemapin serve` daemon: the discovery/revocation/
// skill-signature HTTP server, the pin store, and the metrics/health
// server. It manages the application lifecycle from initialization to
// graceful shutdown.
type App struct {
	config     config.Config
	discovery  *discovery.WellKnownResponse
	revocation *revocation.Document
	serverHttp *server.Server
	serverMets *server.Server
	store      types.Store
}

// New creates and initializes a new App instance with all required
// components. It sets up the application context, loads configuration,
// loads the signing identity,
// builds the discovery and revocation documents served to resolvers,
// initializes the pin store, and wires the HTTP servers for document
// serving and monitoring. Returns an error if any component fails to
// initialize.
func New() (*App, error) {
	slog.Debug("initializing application")

	ctx := context.Background()

	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config")
		return nil, err
	}

	pubKeyPEM, err := os.ReadFile(cfg.Signing.PublicKey)
	if err != nil {
		slog.Error("failed to read public key")
		return nil, fmt.Errorf("application: failed to read public key: %w", err)
	}

	keyManager := signing.NewKeyManager()
	if _, err := keyManager.LoadPublicKeyPEM(string(pubKeyPEM)); err != nil {
		slog.Error("failed to parse public key")
		return nil, fmt.Errorf("application: failed to parse public key: %w", err)
	}

	var revDoc *revocation.Document
	var simpleList []string
	revocationEndpoint := ""

	if cfg.Discovery.RevocationFile != "" {
		data, err := os.ReadFile(cfg.Discovery.RevocationFile)
		if err != nil {
			slog.Error("failed to read revocation file")
			return nil, fmt.Errorf("application: failed to read revocation file: %w", err)
		}

		var doc revocation.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			slog.Error("failed to parse revocation file")
			return nil, fmt.Errorf("application: failed to parse revocation file: %w", err)
		}

		revDoc = &doc
		revocationEndpoint = "/.well-known/schemapin-revocation.json"

		for _, k := range doc.RevokedKeys {
			simpleList = append(simpleList, k.Fingerprint)
		}
	}

	wellKnown := discovery.BuildWellKnown(discovery.Options{
		PublicKeyPEM:       string(pubKeyPEM),
		DeveloperName:      cfg.Signing.DeveloperName,
		Contact:            cfg.Discovery.Contact,
		RevokedKeys:        simpleList,
		SchemaVersion:      cfg.Discovery.SchemaVersion,
		RevocationEndpoint: revocationEndpoint,
	})

	store, err := pinstore.New(ctx, cfg.Store.Type,
		types.WithConnMaxIdleTime(cfg.Store.ConnMaxIdleTime),
		types.WithConnMaxLifetime(cfg.Store.ConnMaxLifetime),
		types.WithDSN(cfg.Store.DSN),
		types.WithDumpDir(cfg.Store.DumpDir),
		types.WithDumpInterval(cfg.Store.DumpInterval),
		types.WithMaxIdleConns(cfg.Store.MaxIdleConns),
		types.WithMaxOpenConns(cfg.Store.MaxOpenConns),
	)
	if err != nil {
		slog.Error("failed to create pin store")
		return nil, err
	}

	metrics.NewCollector()

	srvHttp := server.NewServer(
		server.WithAddr(cfg.Server.Listen),
		server.WithReadTimeout(cfg.Server.ReadTimeout),
		server.WithWriteTimeout(cfg.Server.WriteTimeout),
	)

	srvMetrics := server.NewServer(
		server.WithAddr("127.0.0.1:9090"),
	)
	srvMetrics.SetHandle("/metrics", promhttp.Handler())
	srvMetrics.SetHandleFunc("/", metrics.Root)
	srvMetrics.SetHandleFunc("/health/liveness", store.ProbeLiveness())
	srvMetrics.SetHandleFunc("/health/readiness", store.ProbeReadiness())
	srvMetrics.SetHandleFunc("/health/startup", store.ProbeStartup())

	app := &App{
		config:     cfg,
		discovery:  wellKnown,
		revocation: revDoc,
		serverMets: srvMetrics,
		serverHttp: srvHttp,
		store:      store,
	}

	srvHttp.SetHandleFunc("/.well-known/schemapin.json", app.handleDiscovery)
	srvHttp.SetHandleFunc("/.well-known/schemapin-revocation.json", app.handleRevocation)
	srvHttp.SetHandleFunc("/skills/{name}/.schemapin.sig", app.handleSkillSignature)

	return app, nil
}

// handleDiscovery serves the .well-known/schemapin.json discovery document
// built at startup from the currently active signing key, developer
// metadata, and revocation list.
func (a *App) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	slog.Debug("request", "req", r.URL.Path)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.discovery); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleRevocation serves the standalone revocation document, if one is
// configured. Returns 404 when no revocation file was loaded.
func (a *App) handleRevocation(w http.ResponseWriter, r *http.Request) {
	slog.Debug("request", "req", r.URL.Path)

	if a.revocation == nil {
		http.Error(w, "no revocation document configured", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.revocation); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleSkillSignature serves the .schemapin.sig manifest for a locally
// hosted, signed skill directory named by the {name} path segment.
func (a *App) handleSkillSignature(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}

	slog.Debug("request", "req", r.URL.Path, "skill", name)

	if a.config.Discovery.SkillsDir == "" {
		http.Error(w, "no skills directory configured", http.StatusNotFound)
		return
	}

	sig, err := skill.LoadSignature(filepath.Join(a.config.Discovery.SkillsDir, name))
	if err != nil {
		slog.Error("skill signature not found", "skill", name, "error", err)
		http.Error(w, fmt.Sprintf("skill %s not found", name), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(sig); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Up starts the application and all its components in separate goroutines.
// It launches the metrics server and the document server. Blocks until a
// shutdown signal is received, then triggers graceful shutdown.
func (a *App) Up() {
	slog.Info("starting application",
		"store_type", a.config.Store.Type,
		"app_id", a.config.UUID.String(),
	)

	go a.serverMets.Up()
	go a.serverHttp.Up()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs,
		syscall.SIGTERM,
		syscall.SIGINT,
	)

	sig := <-sigs
	slog.Info("shutdown signal received", "signal", fmt.Sprintf("%s (%d)", sig.String(), sig))

	a.Down()
}

// Down performs graceful shutdown of the application. It closes the pin
// store and ensures all resources are properly released.
func (a *App) Down() error {
	a.serverMets.Down()
	a.serverHttp.Down()

	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Error("failed to close pin store", "error", err)
		}
	}

	slog.Info("application stopped")
	return nil
}
