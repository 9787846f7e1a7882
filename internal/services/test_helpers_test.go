package services_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/tyebliya/waitlist-api/internal/models"
	"github.com/tyebliya/waitlist-api/pkg/logger"
)

func init() {
	if err := logger.Initialize(logger.Config{
		Level:       "debug",
		Environment: "development",
	}); err != nil {
		panic(err)
	}
}

// MockWaitlistStore is a mock implementation of WaitlistStore
type MockWaitlistStore struct {
	mock.Mock
}

func (m *MockWaitlistStore) Create(ctx context.Context, rec *models.WaitlistRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// MockWaitlistRepository implements the read side used by stats and export
type MockWaitlistRepository struct {
	mock.Mock
}

func (m *MockWaitlistRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockWaitlistRepository) List(ctx context.Context) ([]*models.WaitlistRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WaitlistRecord), args.Error(1)
}

type fakeGate struct {
	err    error
	calls  int
	ctxErr error
}

func (g *fakeGate) Check(ctx context.Context, _, _ string) error {
	g.calls++
	g.ctxErr = ctx.Err()
	return g.err
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) Invalidate() { f.calls++ }
