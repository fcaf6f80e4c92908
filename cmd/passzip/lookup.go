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
	"strings"

	"github.com/spf13/cobra"

	"github.com/bcem/passzip/internal/addon"
	"github.com/bcem/passzip/internal/card"
	"github.com/bcem/passzip/internal/config"
	"github.com/bcem/passzip/internal/mailbox/imap"
)

func newLookupCmd() *cobra.Command {
	var (
		backend       string
		token         string
		gmailEndpoint string
	)

	cmd := &cobra.Command{
		Use:   "lookup <message-id>",
		Short: "Resolve one message and print the add-on card as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if backend == "" {
				backend = cfg.MailboxBackend
			}
			if gmailEndpoint == "" {
				gmailEndpoint = cfg.GmailEndpoint
			}

			var mailboxes addon.MailboxFactory
			switch strings.ToLower(backend) {
			case config.BackendGmail:
				if token == "" {
					return fmt.Errorf("--token is required for the gmail backend")
				}
				mailboxes = addon.GmailMailboxes(gmailEndpoint)
			case config.BackendIMAP:
				client, err := imap.NewClient(cfg.IMAP.ClientOptions())
				if err != nil {
					return err
				}
				mailboxes = addon.StaticMailbox(client)
			default:
				return fmt.Errorf("unknown backend %q", backend)
			}

			ev := &addon.Event{
				AuthorizationEventObject: addon.AuthorizationEventObject{UserOAuthToken: token},
				Gmail:                    &addon.GmailEventObject{MessageID: args[0]},
			}

			c, err := addon.NewDispatcher(mailboxes, nil).OnMessageOpen(cmd.Context(), ev)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), card.NewPushCardResponse(c))
		},
	}

	cmd.Flags().StringVar(&backend, "backend", "", "Mailbox backend: gmail or imap (default from MAILBOX_BACKEND)")
	cmd.Flags().StringVar(&token, "token", "", "OAuth access token with a Gmail read scope")
	cmd.Flags().StringVar(&gmailEndpoint, "gmail-endpoint", "", "Override the Gmail API endpoint")

	return cmd
}
