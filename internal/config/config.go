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
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the pipeline service.
type Config struct {
	// Storage
	DatabaseURL  string
	AccountsFile  string // JSON-file backend path (used when DatabaseURL is empty)
	TicketsFile   string
	ProcessedFile string
	TxFile        string

	// Redis
	RedisURL   string
	ReplyQueue string

	// Classification
	GeminiAPIKey  string
	GeminiModel   string
	ClassifyDelay time.Duration // minimum gap between classifier calls

	// Sources
	ApifyToken     string
	MaxItemsPerSrc int // per-source item cap
	MaxKeywords    int // bounded prefix of the configured keyword list
	MaxSubreddits  int

	// Scheduler
	RunInterval  time.Duration
	RetryBackoff time.Duration

	// Server (health check only)
	Port int
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Storage struct {
		AccountsFile  string `yaml:"accounts_file"`
		TicketsFile   string `yaml:"tickets_file"`
		ProcessedFile string `yaml:"processed_file"`
		TxFile        string `yaml:"transactions_file"`
	} `yaml:"storage"`
	Redis struct {
		URL    string `yaml:"url"`
		Queues struct {
			Replies string `yaml:"replies"`
		} `yaml:"queues"`
	} `yaml:"redis"`
	Gemini struct {
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"gemini"`
	Apify struct {
		Token string `yaml:"token"`
	} `yaml:"apify"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables for non-YAML settings.
//
// A missing Gemini API key is a terminal configuration error: the
// classifier contract requires the credential up front, not discovered
// per-call mid-run.
func Load() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "/app/config/config.yaml")

	var raw rawConfig
	data, err := os.ReadFile(configPath)
	if err == nil {
		// Expand ${VAR} references in the YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	cfg := &Config{
		DatabaseURL:    firstNonEmpty(raw.Database.URL, os.Getenv("DATABASE_URL")),
		AccountsFile:   firstNonEmpty(raw.Storage.AccountsFile, envOrDefault("ACCOUNTS_FILE", "users_db.json")),
		TicketsFile:    firstNonEmpty(raw.Storage.TicketsFile, envOrDefault("TICKETS_FILE", "tickets_db.json")),
		ProcessedFile:  firstNonEmpty(raw.Storage.ProcessedFile, envOrDefault("PROCESSED_FILE", "analyzed_posts.json")),
		TxFile:         firstNonEmpty(raw.Storage.TxFile, envOrDefault("TRANSACTIONS_FILE", "transactions.json")),
		RedisURL:       firstNonEmpty(raw.Redis.URL, envOrDefault("REDIS_URL", "redis://localhost:6379/0")),
		ReplyQueue:     firstNonEmpty(raw.Redis.Queues.Replies, envOrDefault("REPLY_QUEUE", "replies")),
		GeminiAPIKey:   firstNonEmpty(raw.Gemini.APIKey, os.Getenv("GEMINI_API_KEY")),
		GeminiModel:    firstNonEmpty(raw.Gemini.Model, envOrDefault("GEMINI_MODEL", "gemini-2.0-flash")),
		ClassifyDelay:  envOrDefaultDuration("CLASSIFY_DELAY", 500*time.Millisecond),
		ApifyToken:     firstNonEmpty(raw.Apify.Token, os.Getenv("APIFY_API_TOKEN")),
		MaxItemsPerSrc: envOrDefaultInt("MAX_ITEMS_PER_SOURCE", 5),
		MaxKeywords:    envOrDefaultInt("MAX_KEYWORDS", 3),
		MaxSubreddits:  envOrDefaultInt("MAX_SUBREDDITS", 2),
		RunInterval:    envOrDefaultDuration("RUN_INTERVAL", time.Hour),
		RetryBackoff:   envOrDefaultDuration("RETRY_BACKOFF", time.Minute),
		Port:           envOrDefaultInt("PORT", 8080),
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set — check config.yaml and environment variables")
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

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
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
