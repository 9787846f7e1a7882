package formstate

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/tyebliya/waitlist-api/internal/models"
	"github.com/tyebliya/waitlist-api/internal/validation"
	"github.com/tyebliya/waitlist-api/pkg/referral"
)

// Status is the form lifecycle stage
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
)

const (
	// DefaultCooldown is how long the form stays locked after a request completes
	DefaultCooldown = 10 * time.Second

	CooldownMessage = "Please wait a moment before trying again."
	GenericMessage  = "Something went wrong. Please try again."

	AnalyticsAction   = "submit_waitlist"
	AnalyticsCategory = "Conversion"
)

var refParamPattern = regexp.MustCompile(`^[A-Z0-9]{1,20}$`)

// Fields are the values the visitor entered
type Fields struct {
	Role           models.Role
	Name           string
	Email          string
	Phone          string
	ReferredBy     string
	Website        string
	TurnstileToken string
}

// State is a snapshot of the form
type State struct {
	Status       Status
	Error        string
	ReferralCode string
	ShareURL     string
	Fields       Fields
	Locked       bool
}

// Joiner submits a payload to the signup endpoint
type Joiner interface {
	Join(ctx context.Context, payload Payload) (*models.JoinResponse, error)
}

// Celebrator plays the success effect
type Celebrator interface {
	Celebrate()
}

// Analytics records conversion events
type Analytics interface {
	Event(action, category, label string)
}

// Options configures a Form
type Options struct {
	// Origin is the site origin embedded in share links
	Origin string
	// LandingURL is the page URL; its ref parameter prefills ReferredBy
	LandingURL string
	Cooldown   time.Duration
	Celebrator Celebrator
	Analytics  Analytics
}

// Form is the signup form state machine: idle → submitting → success | error.
// Safe for concurrent use.
type Form struct {
	mu         sync.Mutex
	state      State
	celebrated bool

	schema     *validation.Schema
	joiner     Joiner
	origin     string
	cooldown   time.Duration
	celebrator Celebrator
	analytics  Analytics
	afterFunc  func(d time.Duration, f func())
}

// NewForm creates an idle form with the client role preselected
func NewForm(schema *validation.Schema, joiner Joiner, opts Options) *Form {
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}

	return &Form{
		state: State{
			Status: StatusIdle,
			Fields: Fields{
				Role:       models.RoleClient,
				ReferredBy: ReferrerFromURL(opts.LandingURL),
			},
		},
		schema:     schema,
		joiner:     joiner,
		origin:     opts.Origin,
		cooldown:   opts.Cooldown,
		celebrator: opts.Celebrator,
		analytics:  opts.Analytics,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// ReferrerFromURL extracts the ref query parameter of a landing URL.
// Values that could never be a referral code are dropped.
func ReferrerFromURL(landingURL string) string {
	if landingURL == "" {
		return ""
	}
	u, err := url.Parse(landingURL)
	if err != nil {
		return ""
	}
	ref := strings.ToUpper(strings.TrimSpace(u.Query().Get("ref")))
	if !refParamPattern.MatchString(ref) {
		return ""
	}
	return ref
}

// Update edits the entered values
func (f *Form) Update(edit func(fields *Fields)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	edit(&f.state.Fields)
}

// State returns a snapshot of the form
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Submit runs one submission to completion and returns the resulting state.
// Entered values are kept on every failure.
func (f *Form) Submit(ctx context.Context) State {
	f.mu.Lock()

	if f.state.Status == StatusSuccess {
		defer f.mu.Unlock()
		return f.state
	}

	if f.state.Locked {
		f.state.Error = CooldownMessage
		defer f.mu.Unlock()
		return f.state
	}

	fields := f.state.Fields

	// Bots get a success screen and nothing is sent
	if fields.Website != "" {
		f.state.Status = StatusSuccess
		f.state.Error = ""
		f.state.ReferralCode = models.FakeReferralCode
		defer f.mu.Unlock()
		return f.state
	}

	if _, err := f.schema.Check(toInput(fields)); err != nil {
		f.fail(localMessage(err))
		defer f.mu.Unlock()
		return f.state
	}

	f.state.Status = StatusSubmitting
	f.state.Error = ""
	f.state.Locked = true
	f.mu.Unlock()

	resp, err := f.joiner.Join(ctx, toPayload(fields))
	f.afterFunc(f.cooldown, f.unlock)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		f.fail(remoteMessage(err))
		return f.state
	}

	f.state.Status = StatusSuccess
	f.state.Error = ""
	f.state.ReferralCode = resp.ReferralCode
	f.state.ShareURL = referral.ShareURL(f.origin, resp.ReferralCode)

	if f.celebrator != nil && !f.celebrated {
		f.celebrated = true
		f.celebrator.Celebrate()
	}
	if f.analytics != nil {
		f.analytics.Event(AnalyticsAction, AnalyticsCategory, string(fields.Role))
	}

	return f.state
}

func (f *Form) fail(message string) {
	f.state.Status = StatusError
	f.state.Error = message
}

func (f *Form) unlock() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.Locked = false
}

func toInput(fields Fields) validation.Input {
	return validation.Input{
		Role:       string(fields.Role),
		Name:       fields.Name,
		Email:      fields.Email,
		Phone:      fields.Phone,
		ReferredBy: fields.ReferredBy,
		Website:    fields.Website,
	}
}

func toPayload(fields Fields) Payload {
	return Payload{
		Role:           string(fields.Role),
		Name:           fields.Name,
		Email:          fields.Email,
		Phone:          fields.Phone,
		ReferredBy:     fields.ReferredBy,
		Website:        fields.Website,
		TurnstileToken: fields.TurnstileToken,
	}
}

func localMessage(err error) string {
	if verr, ok := validation.AsError(err); ok {
		return verr.First()
	}
	return GenericMessage
}

func remoteMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return GenericMessage
}
