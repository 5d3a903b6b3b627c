package hcaptcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/IdleArchive/cashduezy-sub000/internal/pkg/env"
)

const DefaultVerifyURL = "https://hcaptcha.com/siteverify"

var (
	ErrNotConfigured = errors.New("hcaptcha: secret is not set")
	ErrRejected      = errors.New("hcaptcha: token rejected")
	ErrTimeout       = errors.New("hcaptcha: verification timed out")
	ErrUpstream      = errors.New("hcaptcha: verification service unavailable")
)

type Response struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
}

// Verifier checks captcha tokens against the siteverify endpoint.
type Verifier struct {
	Secret    string
	VerifyURL string
	Timeout   time.Duration
	client    *http.Client
}

func New(secret string) *Verifier {
	return &Verifier{
		Secret:    secret,
		VerifyURL: DefaultVerifyURL,
		Timeout:   10 * time.Second,
		client:    &http.Client{},
	}
}

func NewFromEnv() *Verifier {
	return New(env.GetEnv("HCAPTCHA_SECRET", ""))
}

// Verify returns nil for an accepted token. Failures are one of
// ErrNotConfigured, ErrRejected, ErrTimeout or ErrUpstream (wrapped).
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) error {
	if v.Secret == "" {
		return ErrNotConfigured
	}
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: token is empty", ErrRejected)
	}

	ctx, cancel := context.WithTimeout(ctx, v.Timeout)
	defer cancel()

	form := url.Values{
		"secret":   {v.Secret},
		"response": {token},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var response Response
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}

	if !response.Success {
		if len(response.ErrorCodes) > 0 {
			return fmt.Errorf("%w: %s", ErrRejected, strings.Join(response.ErrorCodes, ", "))
		}
		return ErrRejected
	}
	return nil
}
