// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the journal-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/journal-engine/internal/secrets"
	"github.com/pdiddy/journal-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the journal-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "journal-engine",
	Short: "Harvest, enrich, and semantically index academic journals",
	Long: `journal-engine maintains per-journal datasets of bibliographic records.
It harvests complete record sets from Crossref by ISSN, fills in missing
abstracts from Semantic Scholar, and embeds the result into a local
vector collection for semantic search.

Each pipeline stage is a subcommand: harvest, enrich, index, and search.
The serve command exposes the same operations over HTTP.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./journal-engine.yaml or ~/.config/journal-engine/config.yaml)")
}

func initConfig() {
	// A .env file can carry development-time environment overrides.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("journal-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "journal-engine"))
		}
	}

	viper.SetEnvPrefix("JOURNAL_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setDefaults() {
	viper.SetDefault("records_dir", "fetcheddata")

	viper.SetDefault("crossref.timeout", 30*time.Second)
	viper.SetDefault("crossref.user_agent", "journal-engine/0.1")
	viper.SetDefault("crossref.rows", 1000)
	viper.SetDefault("crossref.page_delay", 500*time.Millisecond)
	viper.SetDefault("crossref.max_retries", 5)

	viper.SetDefault("semantic_scholar.timeout", 30*time.Second)
	viper.SetDefault("semantic_scholar.user_agent", "journal-engine/0.1")
	viper.SetDefault("semantic_scholar.requests_per_second", 1.0)
	viper.SetDefault("semantic_scholar.max_retries", 3)

	viper.SetDefault("embedding.provider", "ollama")

	viper.SetDefault("index.dir", "chroma_db")
	viper.SetDefault("index.collection", "academic_papers")
	viper.SetDefault("index.workers", 4)

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.mode", "debug")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

// loadConfig materializes the viper state into a Config, filling API
// credentials from .secrets/ when the config leaves them blank.
func loadConfig() (types.Config, error) {
	setDefaults()

	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Crossref.Mailto = secretDefault("crossref-mailto", cfg.Crossref.Mailto)
	cfg.SemanticScholar.APIKey = secretDefault("semantic-scholar-api-key", cfg.SemanticScholar.APIKey)
	cfg.Embedding.APIKey = secretDefault("openai-api-key", cfg.Embedding.APIKey)

	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
