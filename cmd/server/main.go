// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Password Zip add-on server
//
// Entry point for the Gmail add-on HTTP service. It:
//  1. Loads configuration from config.yaml and the environment
//  2. Sets up structured JSON logging
//  3. Opens the mailbox backend (per-user Gmail, or a shared IMAP mailbox)
//  4. Connects the optional audit sinks (Redis, PostgreSQL)
//  5. Serves the add-on trigger endpoints
//  6. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/bcem/passzip/internal/addon"
	"github.com/bcem/passzip/internal/audit"
	"github.com/bcem/passzip/internal/config"
	"github.com/bcem/passzip/internal/logging"
	"github.com/bcem/passzip/internal/mailbox/imap"
)

const shutdownGrace = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("passzip add-on server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("passzip add-on server stopped")
}

func run() error {
	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	closeLog, err := logging.Setup(logging.Options{Level: cfg.LogLevel, FilePath: cfg.LogFile})
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	defer closeLog()

	slog.Info("starting passzip add-on server",
		"backend", cfg.MailboxBackend,
		"verify_requests", cfg.AddonAudience != "",
		"audit_redis", cfg.RedisURL != "",
		"audit_postgres", cfg.DatabaseURL != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// --- Mailbox backend ---
	var mailboxes addon.MailboxFactory
	switch cfg.MailboxBackend {
	case config.BackendIMAP:
		client, err := imap.NewClient(cfg.IMAP.ClientOptions())
		if err != nil {
			return fmt.Errorf("configure imap backend: %w", err)
		}
		mailboxes = addon.StaticMailbox(client)
	default:
		mailboxes = addon.GmailMailboxes(cfg.GmailEndpoint)
	}

	checks := map[string]addon.HealthCheck{}

	// --- Audit sinks (optional) ---
	var (
		dedup audit.Deduper
		sinks []audit.Sink
	)

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()

		publisher := audit.NewPublisher(rdb, cfg.AuditQueue)
		if err := publisher.Ping(ctx); err != nil {
			return fmt.Errorf("connect to Redis: %w", err)
		}
		slog.Info("connected to Redis", "queue", cfg.AuditQueue)

		dedup = audit.NewFilter(rdb)
		sinks = append(sinks, publisher)
		checks["redis"] = publisher.Ping
	}

	if cfg.DatabaseURL != "" {
		pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("create Postgres pool: %w", err)
		}
		defer pgPool.Close()

		if err := pgPool.Ping(ctx); err != nil {
			return fmt.Errorf("connect to PostgreSQL: %w", err)
		}
		slog.Info("connected to PostgreSQL")

		store, err := audit.NewStore(ctx, pgPool)
		if err != nil {
			return fmt.Errorf("initialise lookup store: %w", err)
		}
		sinks = append(sinks, store)
		checks["postgres"] = pgPool.Ping
	}

	var auditor *audit.Auditor
	if len(sinks) > 0 {
		auditor = audit.New(dedup, sinks...)
	}

	// --- Request verification ---
	var validator addon.TokenValidator
	if cfg.AddonAudience != "" {
		v, err := addon.NewGoogleValidator(ctx)
		if err != nil {
			return err
		}
		validator = v
	} else {
		slog.Warn("ADDON_AUDIENCE not set, add-on requests are not verified")
	}

	handler := addon.NewHandler(addon.HandlerConfig{
		Dispatcher:   addon.NewDispatcher(mailboxes, auditor),
		Validator:    validator,
		Audience:     cfg.AddonAudience,
		HealthChecks: checks,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("add-on server listening", "addr", addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// --- Graceful Shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down add-on server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
