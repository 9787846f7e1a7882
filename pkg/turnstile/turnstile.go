package turnstile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tyebliya/waitlist-api/pkg/circuitbreaker"
	"github.com/tyebliya/waitlist-api/pkg/httpclient"
	"github.com/tyebliya/waitlist-api/pkg/logger"
	"github.com/tyebliya/waitlist-api/pkg/metrics"
	"go.uber.org/zap"
)

// DefaultVerifyURL is Cloudflare's siteverify endpoint
const DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// ErrRejected is returned when the provider answers but does not accept the token
var ErrRejected = errors.New("turnstile token rejected")

// Response represents the siteverify response body
type Response struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
	Action      string   `json:"action"`
}

// Verifier checks Turnstile tokens against the siteverify API
type Verifier struct {
	secretKey  string
	verifyURL  string
	httpClient httpclient.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewVerifier creates a verifier. An empty verifyURL uses DefaultVerifyURL.
func NewVerifier(secretKey, verifyURL string, httpClient httpclient.Client) *Verifier {
	if verifyURL == "" {
		verifyURL = DefaultVerifyURL
	}
	return &Verifier{
		secretKey:  secretKey,
		verifyURL:  verifyURL,
		httpClient: httpClient,
		breaker:    circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig("turnstile")),
	}
}

// Enabled reports whether a secret is configured. Without one the check is skipped.
func (v *Verifier) Enabled() bool {
	return v != nil && v.secretKey != ""
}

// Verify validates token for the client at remoteIP. Any transport or decode
// failure, or an open breaker, is returned as an error so callers treat it as a failed check.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) error {
	start := time.Now()

	result, err := circuitbreaker.Execute(v.breaker, func() (*Response, error) {
		return v.siteverify(ctx, token, remoteIP)
	})
	if err != nil {
		metrics.VerificationRequests.WithLabelValues("error").Inc()
		logger.LogAPICall(ctx, "turnstile", "siteverify", "error", metrics.MeasureDuration(start), zap.Error(err))
		return err
	}

	duration := metrics.MeasureDuration(start)

	if !result.Success {
		metrics.VerificationRequests.WithLabelValues("rejected").Inc()
		logger.LogAPICall(ctx, "turnstile", "siteverify", "rejected", duration,
			zap.Strings("error_codes", result.ErrorCodes))
		return fmt.Errorf("%w: %s", ErrRejected, strings.Join(result.ErrorCodes, ","))
	}

	metrics.VerificationRequests.WithLabelValues("accepted").Inc()
	logger.LogAPICall(ctx, "turnstile", "siteverify", "success", duration)
	return nil
}

// siteverify performs one provider round trip. A rejection is a successful call.
func (v *Verifier) siteverify(ctx context.Context, token, remoteIP string) (*Response, error) {
	data := url.Values{}
	data.Set("secret", v.secretKey)
	data.Set("response", token)
	if remoteIP != "" && remoteIP != "unknown" {
		data.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build turnstile request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to verify turnstile token: %w", err)
	}
	defer resp.Body.Close()

	var result Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode turnstile response: %w", err)
	}
	return &result, nil
}
