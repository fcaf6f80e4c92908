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

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bcem/passzip/internal/mailbox/imap"
)

// Mailbox backends.
const (
	BackendGmail = "gmail"
	BackendIMAP  = "imap"
)

// IMAPConfig holds the connection settings for the IMAP backend.
type IMAPConfig struct {
	Host               string
	Port               int
	Username           string
	Password           string
	UseTLS             bool
	InsecureSkipVerify bool
	Mailbox            string
}

// ClientOptions converts c into options for the IMAP mailbox client.
func (c IMAPConfig) ClientOptions() imap.Options {
	return imap.Options{
		Host:               c.Host,
		Port:               c.Port,
		Username:           c.Username,
		Password:           c.Password,
		UseTLS:             c.UseTLS,
		InsecureSkipVerify: c.InsecureSkipVerify,
		Mailbox:            c.Mailbox,
	}
}

// Config holds all configuration for the add-on service.
type Config struct {
	// Server
	Port int

	// Logging
	LogLevel string
	LogFile  string

	// Audience expected in the Google-signed bearer token. Empty disables
	// request verification.
	AddonAudience string

	// Mailbox
	MailboxBackend string // "gmail" or "imap"
	GmailEndpoint  string // override for tests and proxies
	IMAP           IMAPConfig

	// Audit trail, each sink enabled only when its URL is set.
	RedisURL    string
	AuditQueue  string
	DatabaseURL string
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`
	Addon struct {
		Audience string `yaml:"audience"`
	} `yaml:"addon"`
	Mailbox struct {
		Backend string `yaml:"backend"`
		Gmail   struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"gmail"`
		IMAP struct {
			Host               string `yaml:"host"`
			Port               int    `yaml:"port"`
			Username           string `yaml:"username"`
			Password           string `yaml:"password"`
			TLS                *bool  `yaml:"tls"`
			InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
			Mailbox            string `yaml:"mailbox"`
		} `yaml:"imap"`
	} `yaml:"mailbox"`
	Redis struct {
		URL    string `yaml:"url"`
		Queues struct {
			Audit string `yaml:"audit"`
		} `yaml:"queues"`
	} `yaml:"redis"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables. The file is optional; a missing file leaves
// everything to the environment.
func Load() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "/app/config/config.yaml")

	var raw rawConfig
	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	default:
		// Expand ${VAR} references in the YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	}

	imapTLS := envOrDefaultBool("IMAP_TLS", true)
	if raw.Mailbox.IMAP.TLS != nil {
		imapTLS = *raw.Mailbox.IMAP.TLS
	}

	cfg := &Config{
		Port:           envOrDefaultInt("PORT", 8080),
		LogLevel:       firstNonEmpty(raw.Log.Level, envOrDefault("LOG_LEVEL", "info")),
		LogFile:        firstNonEmpty(raw.Log.File, os.Getenv("LOG_FILE")),
		AddonAudience:  firstNonEmpty(raw.Addon.Audience, os.Getenv("ADDON_AUDIENCE")),
		MailboxBackend: strings.ToLower(firstNonEmpty(raw.Mailbox.Backend, envOrDefault("MAILBOX_BACKEND", BackendGmail))),
		GmailEndpoint:  firstNonEmpty(raw.Mailbox.Gmail.Endpoint, os.Getenv("GMAIL_ENDPOINT")),
		IMAP: IMAPConfig{
			Host:               firstNonEmpty(raw.Mailbox.IMAP.Host, os.Getenv("IMAP_HOST")),
			Port:               firstPositive(raw.Mailbox.IMAP.Port, envOrDefaultInt("IMAP_PORT", 993)),
			Username:           firstNonEmpty(raw.Mailbox.IMAP.Username, os.Getenv("IMAP_USERNAME")),
			Password:           firstNonEmpty(raw.Mailbox.IMAP.Password, os.Getenv("IMAP_PASSWORD")),
			UseTLS:             imapTLS,
			InsecureSkipVerify: raw.Mailbox.IMAP.InsecureSkipVerify || envOrDefaultBool("IMAP_INSECURE_SKIP_VERIFY", false),
			Mailbox:            firstNonEmpty(raw.Mailbox.IMAP.Mailbox, envOrDefault("IMAP_MAILBOX", "INBOX")),
		},
		RedisURL:    firstNonEmpty(raw.Redis.URL, os.Getenv("REDIS_URL")),
		AuditQueue:  firstNonEmpty(raw.Redis.Queues.Audit, envOrDefault("AUDIT_QUEUE", "passzip_lookups")),
		DatabaseURL: firstNonEmpty(raw.Database.URL, os.Getenv("DATABASE_URL")),
	}

	switch cfg.MailboxBackend {
	case BackendGmail:
	case BackendIMAP:
		if cfg.IMAP.Host == "" || cfg.IMAP.Username == "" {
			return nil, fmt.Errorf("imap backend requires IMAP_HOST and IMAP_USERNAME")
		}
	default:
		return nil, fmt.Errorf("unknown mailbox backend %q", cfg.MailboxBackend)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
