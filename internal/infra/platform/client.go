// Package platform implements the course platform API client.
// It signs a student in with their platform credentials, fetches the grading
// sheet export, and maps it to a parcel snapshot.
package platform

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"parcel_monitor_bot/internal/domain/parcel"
	"parcel_monitor_bot/internal/domain/student"
)

// Error taxonomy for one fetch attempt. Callers branch with errors.Is.
var (
	// ErrAuth: the platform permanently rejects the credentials. The student
	// must re-register before polling resumes.
	ErrAuth = fmt.Errorf("platform rejected credentials")
	// ErrTransient: timeout, connection failure or server-side error. Safe to
	// retry on the next cycle.
	ErrTransient = fmt.Errorf("transient platform error")
	// ErrParse: the platform response cannot be mapped to submissions. The
	// cycle is skipped for this student so the stored snapshot stays intact.
	ErrParse = fmt.Errorf("unparseable platform response")
)

type Config struct {
	BaseURL string
	Timeout time.Duration // per-attempt timeout; exceeding it surfaces as ErrTransient
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Entry

	// Access tokens cached per platform login. A stale token triggers one
	// transparent re-auth followed by a single fetch retry.
	tokensMu sync.Mutex
	tokens   map[string]string
}

func NewClient(cfg Config, logger *logrus.Entry) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		tokens:     make(map[string]string),
	}
}

// FetchSnapshot fetches the student's current submission states. It has no
// side effects beyond outbound network calls and its own token cache.
func (c *Client) FetchSnapshot(ctx context.Context, s *student.Student) (parcel.Snapshot, error) {
	token, err := c.tokenFor(ctx, s, false)
	if err != nil {
		return nil, err
	}

	body, status, err := c.fetchExport(ctx, s.PlatformLogin, token)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		// Session expired: re-authenticate once and retry the fetch once.
		c.logger.WithField("login", s.PlatformLogin).Debug("Platform session expired, re-authenticating")
		token, err = c.tokenFor(ctx, s, true)
		if err != nil {
			return nil, err
		}
		body, status, err = c.fetchExport(ctx, s.PlatformLogin, token)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: fetch rejected after re-auth", ErrAuth)
		}
	}

	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: export returned status %d", ErrTransient, status)
	}

	snap, err := mapExportCSV(body)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// tokenFor returns a cached access token for the student's login, signing in
// when the cache is empty or a refresh is forced.
func (c *Client) tokenFor(ctx context.Context, s *student.Student, force bool) (string, error) {
	if !force {
		c.tokensMu.Lock()
		token, ok := c.tokens[s.PlatformLogin]
		c.tokensMu.Unlock()
		if ok {
			return token, nil
		}
	}

	token, err := c.signIn(ctx, s.PlatformLogin, s.PlatformPassword)
	if err != nil {
		return "", err
	}

	c.tokensMu.Lock()
	c.tokens[s.PlatformLogin] = token
	c.tokensMu.Unlock()
	return token, nil
}

// signIn performs the Basic-auth handshake and returns an access token.
func (c *Client) signIn(ctx context.Context, login, password string) (string, error) {
	fullURL := c.baseURL + "/api/v1/auth/signin"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, nil)
	if err != nil {
		return "", fmt.Errorf("create signin request: %w", err)
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(login + ":" + password))
	req.Header.Set("Authorization", "Basic "+credentials)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", wrapTransportError("signin", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("%w: signin returned status %d", ErrAuth, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: signin returned status %d", ErrTransient, resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", wrapTransportError("signin read", err)
	}

	var authResponse struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(respBody, &authResponse); err != nil {
		return "", fmt.Errorf("%w: signin response: %v", ErrParse, err)
	}
	if authResponse.AccessToken == "" {
		return "", fmt.Errorf("%w: signin response has empty access_token", ErrParse)
	}
	return authResponse.AccessToken, nil
}

// fetchExport downloads the grading sheet CSV for one login. A 401 is
// returned to the caller via the status code so it can re-auth.
func (c *Client) fetchExport(ctx context.Context, login, token string) ([]byte, int, error) {
	fullURL := fmt.Sprintf("%s/api/v1/grading/export?format=csv&login=%s", c.baseURL, url.QueryEscape(login))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create export request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, wrapTransportError("export", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, resp.StatusCode, fmt.Errorf("%w: export returned status %d", ErrTransient, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, wrapTransportError("export read", err)
	}
	return body, resp.StatusCode, nil
}

func wrapTransportError(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrTransient, op, err)
}
