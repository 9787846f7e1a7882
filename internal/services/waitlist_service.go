package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/tyebliya/waitlist-api/config"
	"github.com/tyebliya/waitlist-api/internal/models"
	"github.com/tyebliya/waitlist-api/internal/repository"
	"github.com/tyebliya/waitlist-api/internal/validation"
	apperrors "github.com/tyebliya/waitlist-api/pkg/errors"
	"github.com/tyebliya/waitlist-api/pkg/httpclient"
	"github.com/tyebliya/waitlist-api/pkg/iphash"
	"github.com/tyebliya/waitlist-api/pkg/logger"
	"github.com/tyebliya/waitlist-api/pkg/metrics"
	"github.com/tyebliya/waitlist-api/pkg/referral"
	"github.com/tyebliya/waitlist-api/pkg/retry"
	"github.com/tyebliya/waitlist-api/pkg/sanitize"
	"github.com/tyebliya/waitlist-api/pkg/tracing"
	"github.com/tyebliya/waitlist-api/pkg/trigger"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// WaitlistService runs a submission from verification to persistence
type WaitlistService struct {
	store      WaitlistStore
	gate       VerificationGate
	schema     *validation.Schema
	hasher     *iphash.Hasher
	stats      StatsInvalidator
	config     *config.Config
	httpClient httpclient.Client
	newCode    func() (string, error)
}

// NewWaitlistService creates a new waitlist service instance. stats may be nil.
func NewWaitlistService(
	store WaitlistStore,
	gate VerificationGate,
	schema *validation.Schema,
	stats StatsInvalidator,
	cfg *config.Config,
	httpClient httpclient.Client,
) *WaitlistService {
	return &WaitlistService{
		store:      store,
		gate:       gate,
		schema:     schema,
		hasher:     iphash.New(cfg.Waitlist.IPHashSalt),
		stats:      stats,
		config:     cfg,
		httpClient: httpClient,
		newCode:    referral.NewCode,
	}
}

// Join verifies, validates, sanitizes and persists one submission.
//
// Bots caught by the honeypot get a fabricated success and nothing is stored.
// Cancellation of ctx is ignored; its values (trace span, request id) are kept.
func (s *WaitlistService) Join(ctx context.Context, req *models.JoinRequest) (*models.JoinResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "waitlist.join")
	defer span.End()

	// A started submission always reaches a terminal outcome, even if the client goes away.
	ctx = context.WithoutCancel(ctx)

	if err := s.gate.Check(ctx, req.TurnstileToken, req.ClientIP); err != nil {
		outcome := "verification_failed"
		if errors.Is(err, ErrVerificationRequired) {
			outcome = "verification_required"
		}
		metrics.WaitlistSubmissions.WithLabelValues(outcome).Inc()
		logger.Warn("Waitlist verification rejected", zap.String("outcome", outcome), zap.Error(err))
		return nil, err
	}

	sub, err := s.schema.Validate(req.Candidate)
	if err != nil {
		metrics.WaitlistSubmissions.WithLabelValues("invalid").Inc()
		return nil, err
	}

	if sub.IsBot() {
		metrics.WaitlistSubmissions.WithLabelValues("honeypot").Inc()
		logger.Warn("Honeypot triggered, returning fabricated success",
			zap.String("ip_hash", s.hasher.Hash(req.ClientIP)))
		return s.response(models.FakeReferralCode), nil
	}

	rec := &models.WaitlistRecord{
		Role:       sub.Role,
		Name:       sanitize.String(sub.Name),
		Email:      sanitize.Optional(sub.Email),
		Phone:      sanitize.Optional(sub.Phone),
		ReferredBy: sanitize.Optional(sub.ReferredBy),
		Metadata: models.RecordMetadata{
			Source: s.config.Waitlist.Source,
			IPHash: s.hasher.Hash(req.ClientIP),
		},
	}
	span.SetAttributes(attribute.String("waitlist.role", string(rec.Role)))

	if err := s.persist(ctx, rec); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	metrics.WaitlistSubmissions.WithLabelValues("accepted").Inc()
	metrics.WaitlistSignups.WithLabelValues(string(rec.Role)).Inc()
	logger.Info("Waitlist signup accepted",
		zap.String("record_id", rec.ID),
		zap.String("role", string(rec.Role)),
		zap.Bool("referred", rec.ReferredBy != nil))

	if s.stats != nil {
		s.stats.Invalidate()
	}
	trigger.CallAsync(s.config.EventTriggers.WaitlistCreatedTriggerURL, rec.ID, s.httpClient)

	return s.response(rec.ReferralCode), nil
}

// persist inserts the record, drawing a new referral code whenever the previous one collides
func (s *WaitlistService) persist(ctx context.Context, rec *models.WaitlistRecord) error {
	isCollision := func(err error) bool { return errors.Is(err, repository.ErrReferralCodeTaken) }

	err := retry.Do(ctx, retry.ReferralCodeConfig(isCollision), "waitlist.insert", func() error {
		code, err := s.newCode()
		if err != nil {
			return fmt.Errorf("failed to generate referral code: %w", err)
		}
		rec.ReferralCode = code
		return s.store.Create(ctx, rec)
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperrors.ErrConflict):
		metrics.WaitlistSubmissions.WithLabelValues("duplicate").Inc()
		logger.Info("Waitlist contact already registered", zap.String("ip_hash", rec.Metadata.IPHash))
		return fmt.Errorf("%w: %w", ErrAlreadyRegistered, err)
	case errors.Is(err, apperrors.ErrInvalidInput):
		metrics.WaitlistSubmissions.WithLabelValues("rejected_by_store").Inc()
		logger.Warn("Store rejected waitlist record", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	default:
		metrics.WaitlistSubmissions.WithLabelValues("error").Inc()
		logger.Error("Failed to persist waitlist record", zap.Error(err))
		return fmt.Errorf("failed to persist waitlist record: %w", err)
	}
}

func (s *WaitlistService) response(code string) *models.JoinResponse {
	return &models.JoinResponse{
		Success:      true,
		ReferralCode: code,
		ShareURL:     referral.ShareURL(s.config.Server.BaseURL, code),
	}
}
