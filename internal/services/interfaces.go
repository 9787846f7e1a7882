package services

import (
	"context"

	"github.com/tyebliya/waitlist-api/internal/models"
)

// WaitlistServiceInterface defines the waitlist signup operation
type WaitlistServiceInterface interface {
	Join(ctx context.Context, req *models.JoinRequest) (*models.JoinResponse, error)
}

// StatsServiceInterface defines the public waitlist counters
type StatsServiceInterface interface {
	Get(ctx context.Context) (*models.WaitlistStats, error)
}

// ExportServiceInterface defines the waitlist snapshot export
type ExportServiceInterface interface {
	Export(ctx context.Context) (*ExportResult, error)
}

// WaitlistStore persists new waitlist records
type WaitlistStore interface {
	Create(ctx context.Context, rec *models.WaitlistRecord) error
}

// WaitlistCounter counts waitlist records
type WaitlistCounter interface {
	Count(ctx context.Context) (int, error)
}

// WaitlistLister reads every waitlist record
type WaitlistLister interface {
	List(ctx context.Context) ([]*models.WaitlistRecord, error)
}

// ObjectUploader stores a file in object storage and returns its location
type ObjectUploader interface {
	Upload(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// VerificationGate decides whether a request passes human verification
type VerificationGate interface {
	Check(ctx context.Context, token, clientIP string) error
}

// StatsInvalidator drops cached stats after a signup
type StatsInvalidator interface {
	Invalidate()
}
