package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tyebliya/waitlist-api/internal/guard"
	"github.com/tyebliya/waitlist-api/internal/models"
	"github.com/tyebliya/waitlist-api/internal/services"
	"github.com/tyebliya/waitlist-api/internal/validation"
	"github.com/tyebliya/waitlist-api/pkg/metrics"
)

const turnstileTokenField = "turnstileToken"

// RateLimiter admits or refuses a request for a client key
type RateLimiter interface {
	Allow(ctx context.Context, key string) bool
}

type WaitlistHandler struct {
	service services.WaitlistServiceInterface
	limiter RateLimiter
}

func NewWaitlistHandler(service services.WaitlistServiceInterface, limiter RateLimiter) *WaitlistHandler {
	return &WaitlistHandler{
		service: service,
		limiter: limiter,
	}
}

// Join handles POST /api/waitlist
func (h *WaitlistHandler) Join(c *gin.Context) {
	ctx := c.Request.Context()
	clientIP := guard.ClientIP(c.Request.Header)

	if !h.limiter.Allow(ctx, clientIP) {
		metrics.WaitlistSubmissions.WithLabelValues("rate_limited").Inc()
		respondError(c, http.StatusTooManyRequests, MsgTooManyRequests, nil)
		return
	}

	body, err := decodeObject(c.Request.Body)
	if err != nil {
		metrics.WaitlistSubmissions.WithLabelValues("malformed").Inc()
		respondError(c, http.StatusBadRequest, MsgInvalidBody, err)
		return
	}

	token, _ := body[turnstileTokenField].(string)
	delete(body, turnstileTokenField)

	resp, err := h.service.Join(ctx, &models.JoinRequest{
		Candidate:      body,
		ClientIP:       clientIP,
		TurnstileToken: token,
	})
	if err != nil {
		status, message := joinErrorResponse(err)
		respondError(c, status, message, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// decodeObject reads exactly one JSON object from r. null, other JSON values
// and anything after the object are rejected.
func decodeObject(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	if body == nil {
		return nil, errors.New("request body is not a JSON object")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	return body, nil
}

// joinErrorResponse maps a service error to its status and user-facing message.
// Unclassified errors never expose their detail.
func joinErrorResponse(err error) (int, string) {
	if verr, ok := validation.AsError(err); ok {
		return http.StatusBadRequest, verr.First()
	}

	switch {
	case errors.Is(err, services.ErrVerificationRequired):
		return http.StatusForbidden, MsgVerificationRequired
	case errors.Is(err, services.ErrVerificationFailed):
		return http.StatusForbidden, MsgVerificationFailed
	case errors.Is(err, services.ErrAlreadyRegistered):
		return http.StatusConflict, MsgAlreadyRegistered
	case errors.Is(err, services.ErrInvalidRecord):
		return http.StatusBadRequest, MsgInvalidData
	default:
		return http.StatusInternalServerError, MsgSomethingWentWrong
	}
}

type StatsHandler struct {
	service services.StatsServiceInterface
}

func NewStatsHandler(service services.StatsServiceInterface) *StatsHandler {
	return &StatsHandler{service: service}
}

// GetStats handles GET /api/waitlist/stats
func (h *StatsHandler) GetStats(c *gin.Context) {
	stats, err := h.service.Get(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, MsgSomethingWentWrong, fmt.Errorf("stats: %w", err))
		return
	}

	c.JSON(http.StatusOK, stats)
}
