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

package main

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/bcem/passzip/internal/audit"
	"github.com/bcem/passzip/internal/config"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the lookup audit trail",
	}
	cmd.AddCommand(newAuditRecentCmd())
	return cmd
}

func newAuditRecentCmd() *cobra.Command {
	var (
		limit       int
		databaseURL string
	)

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the most recent lookups recorded in PostgreSQL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			if databaseURL == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				databaseURL = cfg.DatabaseURL
			}
			if databaseURL == "" {
				return fmt.Errorf("no database configured, set DATABASE_URL or --database-url")
			}

			ctx := cmd.Context()
			pool, err := pgxpool.New(ctx, databaseURL)
			if err != nil {
				return fmt.Errorf("create Postgres pool: %w", err)
			}
			defer pool.Close()

			store, err := audit.NewStore(ctx, pool)
			if err != nil {
				return err
			}

			events, err := store.ListRecent(ctx, limit)
			if err != nil {
				return err
			}
			if events == nil {
				events = []audit.Event{}
			}
			return printJSON(cmd.OutOrStdout(), events)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of lookups to list")
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL (default from DATABASE_URL)")

	return cmd
}
