package main

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"spotpool/pkg/credentials"
	"spotpool/pkg/errors"
	"spotpool/pkg/logger"
	"spotpool/pkg/spotify"
)

// probeURL is a cheap authenticated call used to verify a token works
const probeURL = spotify.APIBaseURL + "/search?q=test&type=track&limit=1"

// probeCmd tests every configured credential individually
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Test each credential against the live API",
	Long: `Issue a token for every configured credential and perform one API
call with it, reporting per-credential health. Unlike normal operation,
probing never rotates: each credential is exercised on its own so a bad
pair cannot hide behind a good one.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	creds := loadCredentials(cfg)
	if len(creds) == 0 {
		return fmt.Errorf("no clients loaded from %s", cfg.Auth.ClientsFile)
	}

	issuer := spotify.NewTokenIssuer(cfg.Auth.TokenURL,
		cfg.HTTP.ConnectTimeout, cfg.HTTP.AuthTimeout, log)
	httpClient := &http.Client{Timeout: cfg.HTTP.RequestTimeout}

	working := 0
	for _, cred := range creds {
		outcome := probeOne(cmd, issuer, httpClient, cred)
		if outcome {
			working++
		}
		// Stay polite to the token endpoint between probes
		time.Sleep(200 * time.Millisecond)
	}

	fmt.Printf("\n%d/%d clients working\n", working, len(creds))
	return nil
}

func probeOne(cmd *cobra.Command, issuer *spotify.TokenIssuer, httpClient *http.Client, cred credentials.Credential) bool {
	token, err := issuer.Issue(cmd.Context(), cred)
	if err != nil {
		var apiErr *errors.Error
		if stderrors.As(err, &apiErr) {
			fmt.Printf("%-8s  token: FAIL (%s)\n", cred.ShortID(), apiErr.Type)
		} else {
			fmt.Printf("%-8s  token: FAIL (%v)\n", cred.ShortID(), err)
		}
		return false
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, probeURL, nil)
	if err != nil {
		fmt.Printf("%-8s  token: OK  request: FAIL (%v)\n", cred.ShortID(), err)
		return false
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := httpClient.Do(req)
	if err != nil {
		fmt.Printf("%-8s  token: OK  request: FAIL (%v)\n", cred.ShortID(), err)
		return false
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("%-8s  token: OK  request: FAIL (status %d)\n", cred.ShortID(), resp.StatusCode)
		return false
	}
	fmt.Printf("%-8s  token: OK  request: OK\n", cred.ShortID())
	return true
}
