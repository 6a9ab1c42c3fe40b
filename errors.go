package lobby

import (
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeRegistrationInvalid   = "REGISTRATION_INVALID"
	TextCodeIdentityProvider      = "IDENTITY_PROVIDER_FAILED"
	TextCodeRecordCreation        = "RECORD_CREATION_FAILED"
	TextCodeUnexpectedFailure     = "REGISTRATION_UNEXPECTED"
	TextCodeInvalidTransition     = "INVALID_ATTEMPT_TRANSITION"
	TextCodeUnknownProvider       = "UNKNOWN_SOCIAL_PROVIDER"
	TextCodeSessionInvalid        = "SESSION_INVALID"
	TextCodeOrphanCompensation    = "ORPHAN_COMPENSATION_FAILED"
	TextCodeProviderNotConfigured = "PROVIDER_NOT_CONFIGURED"
	TextCodeUnknownStep           = "UNKNOWN_VERIFY_STEP"
)

// User facing messages rendered below the register form.
const (
	MsgEmailAlreadyInUse                    = "This email is already in use. Please try a different email or sign in."
	MsgAccountExistsWithDifferentCredential = "An account already exists with the same email address but different sign-in credentials. Please sign in using the original method."
	MsgRecordCreationFailed                 = "Registration failed. Unable to create user in the database."
	MsgVerificationFailed                   = "We could not save this step. Please try again."
)

// ErrRegistrationInvalid is attached to attempts that failed a required field.
var ErrRegistrationInvalid = goerrors.New("registration form is invalid", goerrors.CategoryValidation).
	WithTextCode(TextCodeRegistrationInvalid).
	WithCode(goerrors.CodeBadRequest)

// ErrIdentityProviderFailed wraps provider rejections.
var ErrIdentityProviderFailed = goerrors.New("identity provider rejected the request", goerrors.CategoryAuth).
	WithTextCode(TextCodeIdentityProvider).
	WithCode(goerrors.CodeBadRequest)

// ErrRecordCreationFailed wraps backend failures after the identity exists.
var ErrRecordCreationFailed = goerrors.New("unable to create user record", goerrors.CategoryInternal).
	WithTextCode(TextCodeRecordCreation).
	WithCode(goerrors.CodeInternal)

// ErrUnexpectedFailure wraps anything that escaped classification.
var ErrUnexpectedFailure = goerrors.New("unexpected registration failure", goerrors.CategoryInternal).
	WithTextCode(TextCodeUnexpectedFailure).
	WithCode(goerrors.CodeInternal)

// ErrInvalidAttemptTransition is returned for illegal attempt state changes.
var ErrInvalidAttemptTransition = goerrors.New("invalid registration attempt transition", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrUnknownProvider is returned when a social provider is not offered.
var ErrUnknownProvider = goerrors.New("unknown social provider", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUnknownProvider).
	WithCode(goerrors.CodeNotFound)

// ErrSessionInvalid is returned when a session token cannot be decoded.
var ErrSessionInvalid = goerrors.New("invalid session token", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrOrphanCompensationFailed is logged when an orphan policy fails.
var ErrOrphanCompensationFailed = goerrors.New("orphaned identity compensation failed", goerrors.CategoryInternal).
	WithTextCode(TextCodeOrphanCompensation).
	WithCode(goerrors.CodeInternal)

// ErrProviderNotConfigured is returned when a collaborator was not wired.
var ErrProviderNotConfigured = goerrors.New("provider not configured", goerrors.CategoryInternal).
	WithTextCode(TextCodeProviderNotConfigured).
	WithCode(goerrors.CodeInternal)

// ErrUnknownStep is returned for a verification step outside the flow.
var ErrUnknownStep = goerrors.New("unknown verification step", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUnknownStep).
	WithCode(goerrors.CodeNotFound)

// ProviderErrorCode is the closed set of identity provider failures the
// register modal knows how to explain. Anything else maps to CodeUnknown.
type ProviderErrorCode string

const (
	CodeEmailAlreadyInUse                    ProviderErrorCode = "auth/email-already-in-use"
	CodeAccountExistsWithDifferentCredential ProviderErrorCode = "auth/account-exists-with-different-credential"
	CodeUnknown                              ProviderErrorCode = "auth/unknown"
)

// ParseProviderErrorCode maps a raw provider code to the closed enumeration.
func ParseProviderErrorCode(raw string) ProviderErrorCode {
	switch ProviderErrorCode(raw) {
	case CodeEmailAlreadyInUse:
		return CodeEmailAlreadyInUse
	case CodeAccountExistsWithDifferentCredential:
		return CodeAccountExistsWithDifferentCredential
	default:
		return CodeUnknown
	}
}

// ProviderError is a classified identity provider failure.
type ProviderError struct {
	Provider ProviderKind
	Code     ProviderErrorCode
	// Detail is the raw provider message, shown to users for unknown codes.
	Detail string
	Err    error
}

// NewProviderError builds a ProviderError, defaulting the detail to the
// wrapped error message.
func NewProviderError(kind ProviderKind, code ProviderErrorCode, err error) *ProviderError {
	perr := &ProviderError{
		Provider: kind,
		Code:     code,
		Err:      err,
	}
	if err != nil {
		perr.Detail = err.Error()
	}
	if perr.Code == "" {
		perr.Code = CodeUnknown
	}
	return perr
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "identity provider error"
	}
	detail := e.Detail
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if detail == "" {
		detail = "identity provider error"
	}
	return fmt.Sprintf("%s (%s)", detail, e.Code)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// BackendError reports a failed application user record call.
type BackendError struct {
	Status int
	Detail string
	Err    error
}

func (e *BackendError) Error() string {
	if e == nil {
		return "backend error"
	}
	if e.Status != 0 {
		return fmt.Sprintf("backend responded %d: %s", e.Status, e.detail())
	}
	return fmt.Sprintf("backend request failed: %s", e.detail())
}

func (e *BackendError) detail() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *BackendError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ClassifyProviderError returns the code carried by err, CodeUnknown when err
// is not a ProviderError.
func ClassifyProviderError(err error) ProviderErrorCode {
	var perr *ProviderError
	if errors.As(err, &perr) && perr != nil {
		return ParseProviderErrorCode(string(perr.Code))
	}
	return CodeUnknown
}

// ProviderErrorMessage turns a provider failure into the flow message shown
// in the register modal. The email flow only explains an email already in
// use; social sign in also explains accounts bound to another method.
func ProviderErrorMessage(flow Flow, err error) string {
	var perr *ProviderError
	if !errors.As(err, &perr) || perr == nil {
		if flow == FlowEmail {
			return fmt.Sprintf("Registration failed: %v", err)
		}
		return UnexpectedErrorMessage(err)
	}

	switch code := ClassifyProviderError(perr); {
	case code == CodeEmailAlreadyInUse:
		return MsgEmailAlreadyInUse
	case code == CodeAccountExistsWithDifferentCredential && flow == FlowSocial:
		return MsgAccountExistsWithDifferentCredential
	default:
		return fmt.Sprintf("Registration failed: %s", perr.Error())
	}
}

// UnexpectedErrorMessage is the generic message for unclassified failures.
func UnexpectedErrorMessage(cause any) string {
	return fmt.Sprintf("Registration failed. %v", cause)
}

func wrapAttemptError(base *goerrors.Error, cause error, meta map[string]any) error {
	if base == nil {
		return cause
	}

	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	if cause != nil {
		clone.Source = cause
		if meta == nil {
			meta = map[string]any{}
		}
		meta["error"] = cause.Error()
	}
	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}
	return clone
}

// TextCode extracts the go-errors text code from err, if any.
func TextCode(err error) string {
	var rich *goerrors.Error
	if errors.As(err, &rich) && rich != nil {
		return rich.TextCode
	}
	return ""
}

func statusFor(err error) int {
	var rich *goerrors.Error
	if errors.As(err, &rich) && rich != nil && rich.Code >= 400 && rich.Code < 600 {
		return rich.Code
	}
	return http.StatusInternalServerError
}
