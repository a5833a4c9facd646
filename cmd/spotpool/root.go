package main

import (
	"fmt"
	"os"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"spotpool/pkg/config"
	"spotpool/pkg/credentials"
	"spotpool/pkg/logger"
	"spotpool/pkg/pool"
	"spotpool/pkg/spotify"
	"spotpool/pkg/tokencache"
)

var (
	version   = "2.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spotpool",
	Short: "Multiplex many Spotify client credentials behind one logical client",
	Long: `spotpool manages a pool of Spotify client-credential pairs and rotates
among them to maximize throughput against the Web API's per-credential
rate limits.

Features:
  - Automatic credential rotation on rate-limit, auth, and server errors
  - Token caching across restarts (file, system keychain, or in-memory)
  - Optional encrypted credential storage
  - Per-credential status reporting and manual override`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./spotpool.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.SetVersionTemplate(`spotpool {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads configuration and initializes the global logger
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadCredentials reads the configured clients file. A missing or broken
// file yields an empty pool; the process stays up and reports itself
// unusable instead of crashing.
func loadCredentials(cfg *config.Config) []credentials.Credential {
	log := logger.GetLogger()

	var creds []credentials.Credential
	var err error
	if cfg.Auth.Passphrase != "" {
		creds, err = credentials.LoadEncrypted(cfg.Auth.ClientsFile, cfg.Auth.Passphrase)
	} else {
		creds, err = credentials.Load(cfg.Auth.ClientsFile)
	}
	if err != nil {
		log.ErrorWithFields("failed to load clients", map[string]interface{}{
			"file":  cfg.Auth.ClientsFile,
			"error": err.Error(),
		})
		return nil
	}
	return creds
}

// newCacheStore selects the token cache backend from configuration
func newCacheStore(cfg *config.Config) tokencache.Store {
	log := logger.GetLogger()

	switch cfg.Cache.Backend {
	case "keyring":
		store, err := tokencache.NewKeyringStore()
		if err != nil {
			log.WarnWithFields("keyring unavailable, falling back to file cache", map[string]interface{}{
				"error": err.Error(),
			})
			return tokencache.NewFileStore(cfg.Cache.Path)
		}
		return store
	case "memory":
		return tokencache.NewMemoryStore()
	default:
		return tokencache.NewFileStore(cfg.Cache.Path)
	}
}

// buildClient wires the full stack: credentials -> pool -> request executor
func buildClient(cfg *config.Config) *spotify.Client {
	log := logger.GetLogger()

	issuer := spotify.NewTokenIssuer(cfg.Auth.TokenURL,
		cfg.HTTP.ConnectTimeout, cfg.HTTP.AuthTimeout, log)

	p := pool.New(loadCredentials(cfg), issuer, newCacheStore(cfg), pool.Options{
		TokenTTL:    cfg.Pool.TokenTTL,
		TokenBuffer: cfg.Pool.TokenBuffer,
		Cooldown:    cfg.Pool.Cooldown,
		Logger:      log,
	})

	return spotify.NewClient(p, cfg, log)
}

// promptPassphrase reads a passphrase without echoing it
func promptPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return string(pass), nil
}
