package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tyebliya/waitlist-api/internal/models"
)

// ContactRequiredMessage is reported when neither email nor phone is given
const ContactRequiredMessage = "Please provide either an email or a phone number"

var (
	namePattern    = regexp.MustCompile(`^[a-zA-ZÀ-ÿ\s'-]+$`)
	phonePattern   = regexp.MustCompile(`^\+?[0-9\s\-]{7,15}$`)
	refCodePattern = regexp.MustCompile(`^[A-Z0-9]+$`)
)

// messages maps "<field>.<tag>" to the message shown to the user.
var messages = map[string]string{
	"role.required":      "Please select a valid role",
	"role.oneof":         "Please select a valid role",
	"role.type":          "Please select a valid role",
	"name.required":      "Name must be at least 2 characters",
	"name.min":           "Name must be at least 2 characters",
	"name.max":           "Name must be 100 characters or fewer",
	"name.personname":    "Name contains invalid characters",
	"name.type":          "Name contains invalid characters",
	"email.email":        "Invalid email address",
	"email.max":          "Email too long",
	"email.type":         "Invalid email address",
	"email.contact":      ContactRequiredMessage,
	"phone.phone":        "Invalid phone number",
	"phone.type":         "Invalid phone number",
	"referredBy.max":     "Invalid referral code",
	"referredBy.refcode": "Invalid referral code",
	"referredBy.type":    "Invalid referral code",
	"website.type":       "Invalid submission",
}

// Input holds the raw form fields before validation
type Input struct {
	Role       string `json:"role" validate:"required,oneof=client chef"`
	Name       string `json:"name" validate:"required,min=2,max=100,personname"`
	Email      string `json:"email" validate:"omitempty,email,max=254"`
	Phone      string `json:"phone" validate:"omitempty,phone"`
	ReferredBy string `json:"referredBy" validate:"omitempty,max=20,refcode"`
	Website    string `json:"website"`
}

// Issue is a single field-level validation failure
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error lists validation failures in rule order
type Error struct {
	Issues []Issue
}

func (e *Error) Error() string {
	return e.First()
}

// First returns the message of the first violated rule
func (e *Error) First() string {
	if len(e.Issues) == 0 {
		return "Invalid input."
	}
	return e.Issues[0].Message
}

// AsError extracts a validation error from err
func AsError(err error) (*Error, bool) {
	var vErr *Error
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}

// Schema is the single set of waitlist rules. The server uses it as the
// authoritative check and the client form state uses it for early feedback.
type Schema struct {
	validate *validator.Validate
}

// NewSchema builds a schema with the waitlist-specific rules registered
func NewSchema() *Schema {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("personname", matches(namePattern))
	_ = v.RegisterValidation("phone", matches(phonePattern))
	_ = v.RegisterValidation("refcode", matches(refCodePattern))
	v.RegisterStructValidation(requireContact, Input{})

	return &Schema{validate: v}
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// requireContact runs after the field rules and enforces email OR phone.
func requireContact(sl validator.StructLevel) {
	in := sl.Current().Interface().(Input)
	if in.Email == "" && in.Phone == "" {
		sl.ReportError(in.Email, "email", "Email", "contact", "")
	}
}

// Check validates typed input and returns the normalized submission
func (s *Schema) Check(in Input) (*models.Submission, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	if err := s.validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, err
		}
		return nil, toError(fieldErrs)
	}

	return &models.Submission{
		Role:       models.Role(in.Role),
		Name:       in.Name,
		Email:      strings.ToLower(in.Email),
		Phone:      in.Phone,
		ReferredBy: in.ReferredBy,
		Website:    in.Website,
	}, nil
}

// Validate checks an untyped candidate, as decoded from a JSON body.
// Fields of the wrong type are reported before content rules run.
func (s *Schema) Validate(candidate map[string]any) (*models.Submission, error) {
	var in Input
	var issues []Issue

	targets := []struct {
		field string
		dst   *string
	}{
		{"role", &in.Role},
		{"name", &in.Name},
		{"email", &in.Email},
		{"phone", &in.Phone},
		{"referredBy", &in.ReferredBy},
		{"website", &in.Website},
	}

	for _, t := range targets {
		raw, ok := candidate[t.field]
		if !ok || raw == nil {
			continue
		}
		str, ok := raw.(string)
		if !ok {
			issues = append(issues, Issue{Field: t.field, Message: messageFor(t.field, "type")})
			continue
		}
		*t.dst = str
	}

	if len(issues) > 0 {
		return nil, &Error{Issues: issues}
	}

	return s.Check(in)
}

func toError(fieldErrs validator.ValidationErrors) *Error {
	issues := make([]Issue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, Issue{
			Field:   fe.Field(),
			Message: messageFor(fe.Field(), fe.Tag()),
		})
	}
	return &Error{Issues: issues}
}

func messageFor(field, tag string) string {
	if msg, ok := messages[field+"."+tag]; ok {
		return msg
	}
	return "Invalid input."
}
