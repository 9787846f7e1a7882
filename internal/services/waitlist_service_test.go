package services_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tyebliya/waitlist-api/config"
	"github.com/tyebliya/waitlist-api/internal/models"
	"github.com/tyebliya/waitlist-api/internal/repository"
	"github.com/tyebliya/waitlist-api/internal/services"
	"github.com/tyebliya/waitlist-api/internal/validation"
	apperrors "github.com/tyebliya/waitlist-api/pkg/errors"
	"github.com/tyebliya/waitlist-api/pkg/httpclient"
)

var referralCodePattern = regexp.MustCompile(`^TYEB[A-Z0-9]{6}$`)

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{BaseURL: "https://tyebliya.com"},
		Waitlist: config.WaitlistConfig{Source: "web_v2", IPHashSalt: "pepper"},
	}
}

func validCandidate() map[string]any {
	return map[string]any{
		"role":       "chef",
		"name":       "  Amina  ",
		"email":      " Amina@Example.com ",
		"referredBy": "TYEBAB12CD",
	}
}

func newService(store services.WaitlistStore, gate *fakeGate, stats services.StatsInvalidator) *services.WaitlistService {
	return services.NewWaitlistService(store, gate, validation.NewSchema(), stats, testConfig(), httpclient.NewStandardClient(time.Second))
}

func TestWaitlistService_Join_Success(t *testing.T) {
	store := new(MockWaitlistStore)
	stats := &fakeInvalidator{}
	service := newService(store, &fakeGate{}, stats)

	var saved *models.WaitlistRecord
	store.On("Create", mock.Anything, mock.AnythingOfType("*models.WaitlistRecord")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*models.WaitlistRecord)
			saved.ID = "rec-1"
		}).
		Return(nil).Once()

	resp, err := service.Join(context.Background(), &models.JoinRequest{
		Candidate: validCandidate(),
		ClientIP:  "203.0.113.5",
	})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Regexp(t, referralCodePattern, resp.ReferralCode)
	assert.Equal(t, "https://tyebliya.com?ref="+resp.ReferralCode, resp.ShareURL)

	require.NotNil(t, saved)
	assert.Equal(t, resp.ReferralCode, saved.ReferralCode)
	assert.Equal(t, models.RoleChef, saved.Role)
	assert.Equal(t, "Amina", saved.Name)
	require.NotNil(t, saved.Email)
	assert.Equal(t, "amina@example.com", *saved.Email)
	assert.Nil(t, saved.Phone)
	require.NotNil(t, saved.ReferredBy)
	assert.Equal(t, "TYEBAB12CD", *saved.ReferredBy)
	assert.Equal(t, "web_v2", saved.Metadata.Source)
	assert.Regexp(t, `^h_[0-9a-f]{16}$`, saved.Metadata.IPHash)
	assert.NotContains(t, saved.Metadata.IPHash, "203.0.113.5")

	assert.Equal(t, 1, stats.calls)
	store.AssertExpectations(t)
}

func TestWaitlistService_Join_PhoneOnly(t *testing.T) {
	store := new(MockWaitlistStore)
	service := newService(store, &fakeGate{}, nil)

	var saved *models.WaitlistRecord
	store.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*models.WaitlistRecord) }).
		Return(nil).Once()

	_, err := service.Join(context.Background(), &models.JoinRequest{
		Candidate: map[string]any{"role": "client", "name": "Youssef", "phone": "+212 600-000000", "email": "   "},
	})
	require.NoError(t, err)

	assert.Nil(t, saved.Email)
	require.NotNil(t, saved.Phone)
	assert.Equal(t, "+212 600-000000", *saved.Phone)
	assert.Nil(t, saved.ReferredBy)
}

func TestWaitlistService_Join_HoneypotStoresNothing(t *testing.T) {
	store := new(MockWaitlistStore)
	stats := &fakeInvalidator{}
	service := newService(store, &fakeGate{}, stats)

	candidate := validCandidate()
	candidate["website"] = "https://cheap-pills.example"

	resp, err := service.Join(context.Background(), &models.JoinRequest{Candidate: candidate, ClientIP: "198.51.100.7"})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, models.FakeReferralCode, resp.ReferralCode)
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Zero(t, stats.calls)
}

func TestWaitlistService_Join_VerificationErrors(t *testing.T) {
	for _, gateErr := range []error{
		services.ErrVerificationRequired,
		fmt.Errorf("%w: timeout", services.ErrVerificationFailed),
	} {
		store := new(MockWaitlistStore)
		gate := &fakeGate{err: gateErr}
		service := newService(store, gate, nil)

		_, err := service.Join(context.Background(), &models.JoinRequest{Candidate: validCandidate()})
		assert.ErrorIs(t, err, gateErr)
		assert.Equal(t, 1, gate.calls)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	}
}

func TestWaitlistService_Join_VerificationBeforeValidation(t *testing.T) {
	service := newService(new(MockWaitlistStore), &fakeGate{err: services.ErrVerificationRequired}, nil)

	_, err := service.Join(context.Background(), &models.JoinRequest{Candidate: map[string]any{}})

	assert.ErrorIs(t, err, services.ErrVerificationRequired)
	_, isValidation := validation.AsError(err)
	assert.False(t, isValidation)
}

func TestWaitlistService_Join_ValidationError(t *testing.T) {
	store := new(MockWaitlistStore)
	service := newService(store, &fakeGate{}, nil)

	_, err := service.Join(context.Background(), &models.JoinRequest{
		Candidate: map[string]any{"role": "chef", "name": "Amina"},
	})

	verr, ok := validation.AsError(err)
	require.True(t, ok)
	assert.Equal(t, validation.ContactRequiredMessage, verr.First())
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestWaitlistService_Join_StoreErrors(t *testing.T) {
	tests := []struct {
		name     string
		storeErr error
		target   error
	}{
		{
			name:     "duplicate contact",
			storeErr: fmt.Errorf("create: %w", apperrors.ConflictError("waitlist_users_email_key")),
			target:   services.ErrAlreadyRegistered,
		},
		{
			name:     "constraint violation",
			storeErr: fmt.Errorf("create: %w", apperrors.InvalidInputError("waitlist_users_role_check", "23514")),
			target:   services.ErrInvalidRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockWaitlistStore)
			stats := &fakeInvalidator{}
			store.On("Create", mock.Anything, mock.Anything).Return(tt.storeErr).Once()

			_, err := newService(store, &fakeGate{}, stats).Join(context.Background(), &models.JoinRequest{Candidate: validCandidate()})

			assert.ErrorIs(t, err, tt.target)
			assert.Zero(t, stats.calls)
			store.AssertExpectations(t)
		})
	}
}

func TestWaitlistService_Join_UnclassifiedStoreError(t *testing.T) {
	store := new(MockWaitlistStore)
	store.On("Create", mock.Anything, mock.Anything).Return(&pgconn.PgError{Code: "08006"}).Once()

	_, err := newService(store, &fakeGate{}, nil).Join(context.Background(), &models.JoinRequest{Candidate: validCandidate()})

	require.Error(t, err)
	assert.False(t, errors.Is(err, services.ErrAlreadyRegistered))
	assert.False(t, errors.Is(err, services.ErrInvalidRecord))
	store.AssertNumberOfCalls(t, "Create", 1)
}

func TestWaitlistService_Join_CompletesAfterClientDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := new(MockWaitlistStore)
	var storeCtxErr error
	store.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { storeCtxErr = args.Get(0).(context.Context).Err() }).
		Return(nil).Once()
	gate := &fakeGate{}

	resp, err := newService(store, gate, nil).Join(ctx, &models.JoinRequest{Candidate: validCandidate()})
	require.NoError(t, err)

	assert.Regexp(t, referralCodePattern, resp.ReferralCode)
	assert.NoError(t, gate.ctxErr)
	assert.NoError(t, storeCtxErr)
	store.AssertNumberOfCalls(t, "Create", 1)
}

func TestWaitlistService_Join_RegeneratesCollidingReferralCode(t *testing.T) {
	store := new(MockWaitlistStore)
	var codes []string
	record := func(args mock.Arguments) {
		codes = append(codes, args.Get(1).(*models.WaitlistRecord).ReferralCode)
	}
	store.On("Create", mock.Anything, mock.Anything).Run(record).
		Return(fmt.Errorf("create: %w", repository.ErrReferralCodeTaken)).Twice()
	store.On("Create", mock.Anything, mock.Anything).Run(record).Return(nil).Once()

	resp, err := newService(store, &fakeGate{}, nil).Join(context.Background(), &models.JoinRequest{Candidate: validCandidate()})
	require.NoError(t, err)

	require.Len(t, codes, 3)
	assert.Equal(t, codes[2], resp.ReferralCode)
	for _, code := range codes {
		assert.Regexp(t, referralCodePattern, code)
	}
	store.AssertExpectations(t)
}

func TestWaitlistService_Join_CallsSignupTrigger(t *testing.T) {
	received := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- r.URL.Query().Get("record_id")
	}))
	defer server.Close()

	store := new(MockWaitlistStore)
	store.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { args.Get(1).(*models.WaitlistRecord).ID = "rec-77" }).
		Return(nil).Once()

	cfg := testConfig()
	cfg.EventTriggers.WaitlistCreatedTriggerURL = server.URL
	service := services.NewWaitlistService(store, &fakeGate{}, validation.NewSchema(), nil, cfg, httpclient.NewStandardClient(time.Second))

	_, err := service.Join(context.Background(), &models.JoinRequest{Candidate: validCandidate()})
	require.NoError(t, err)

	select {
	case id := <-received:
		assert.Equal(t, "rec-77", id)
	case <-time.After(2 * time.Second):
		t.Fatal("signup trigger was not called")
	}
}
