package spotify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"spotpool/pkg/credentials"
	"spotpool/pkg/errors"
	"spotpool/pkg/logger"
)

// TokenIssuer exchanges a credential pair for a bearer token via the
// authorization endpoint, classifying failure responses so the pool can
// decide between cooling a credential down and retiring it.
type TokenIssuer struct {
	httpClient *http.Client
	tokenURL   string
	log        logger.Logger
}

// NewTokenIssuer creates an issuer against the given token endpoint
func NewTokenIssuer(tokenURL string, connectTimeout, totalTimeout time.Duration, log logger.Logger) *TokenIssuer {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &TokenIssuer{
		httpClient: newHTTPClient(connectTimeout, totalTimeout),
		tokenURL:   tokenURL,
		log:        log,
	}
}

// newHTTPClient builds a client with separate connect and total timeouts
func newHTTPClient(connectTimeout, totalTimeout time.Duration) *http.Client {
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	if totalTimeout <= 0 {
		totalTimeout = 15 * time.Second
	}
	return &http.Client{
		Timeout: totalTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: connectTimeout,
			}).DialContext,
			TLSHandshakeTimeout: connectTimeout,
		},
	}
}

// tokenResponse is the authorization server's success payload
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Issue performs a client-credentials exchange with HTTP Basic auth.
// Failures are typed: 429 -> rate_limit, 400/401 -> invalid_client,
// other statuses -> server_error/unknown, transport faults -> network.
func (ti *TokenIssuer) Issue(ctx context.Context, cred credentials.Credential) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ti.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.New(errors.ErrorTypeUnknown, 0, "failed to create token request: %v", err)
	}

	basic := base64.StdEncoding.EncodeToString([]byte(cred.ID + ":" + cred.Secret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ti.httpClient.Do(req)
	if err != nil {
		ti.log.WarnWithFields("token request transport failure", map[string]interface{}{
			"client": cred.ShortID(),
			"error":  err.Error(),
		})
		return "", errors.New(errors.ErrorTypeNetwork, 0, "token request failed: %v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", errors.New(errors.ErrorTypeNetwork, resp.StatusCode,
				"failed to read token response: %v", err)
		}
		var tr tokenResponse
		if err := json.Unmarshal(body, &tr); err != nil {
			return "", errors.New(errors.ErrorTypeParsing, resp.StatusCode,
				"failed to parse token response: %v", err)
		}
		if tr.AccessToken == "" {
			return "", errors.New(errors.ErrorTypeParsing, resp.StatusCode,
				"token response missing access_token")
		}
		return tr.AccessToken, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		ti.log.WarnWithFields("client rate limited during token fetch", map[string]interface{}{
			"client": cred.ShortID(),
		})
		return "", errors.New(errors.ErrorTypeRateLimit, resp.StatusCode,
			"rate limited during token fetch")

	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		return "", errors.New(errors.ErrorTypeInvalidClient, resp.StatusCode,
			"invalid client credentials")

	case resp.StatusCode >= 500:
		return "", errors.New(errors.ErrorTypeServerError, resp.StatusCode,
			"token endpoint returned %d", resp.StatusCode)

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		ti.log.WarnWithFields("unexpected token response", map[string]interface{}{
			"client": cred.ShortID(),
			"status": resp.StatusCode,
			"body":   string(body),
		})
		return "", errors.New(errors.ErrorTypeUnknown, resp.StatusCode,
			"token request failed with status %d", resp.StatusCode)
	}
}
