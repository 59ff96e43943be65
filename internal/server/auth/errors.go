package auth

import (
	"errors"

	"github.com/dmitrijs2005/catalogkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Reason says why a token was rejected.
type Reason string

const (
	ReasonMalformed        Reason = "Malformed"
	ReasonInvalidSignature Reason = "InvalidSignature"
	ReasonExpired          Reason = "Expired"
	ReasonNotYetValid      Reason = "NotYetValid"
	ReasonInvalidIssuer    Reason = "InvalidIssuer"
	ReasonInvalidAudience  Reason = "InvalidAudience"
)

// ValidationError is returned by TokenManager.Validate. It matches
// common.ErrTokenExpired for expired tokens and common.ErrInvalidToken for
// every other reason.
type ValidationError struct {
	Reason Reason
	cause  error
}

func (e *ValidationError) Error() string {
	return "token rejected: " + string(e.Reason)
}

func (e *ValidationError) Unwrap() []error {
	sentinel := common.ErrInvalidToken
	if e.Reason == ReasonExpired {
		sentinel = common.ErrTokenExpired
	}
	if e.cause == nil {
		return []error{sentinel}
	}
	return []error{sentinel, e.cause}
}

// ReasonOf extracts the rejection reason from err, or "" if err is not a
// *ValidationError.
func ReasonOf(err error) Reason {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	return ""
}

func reject(r Reason, cause error) *ValidationError {
	return &ValidationError{Reason: r, cause: cause}
}

func classify(err error) *ValidationError {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrInvalidType):
		return reject(ReasonMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return reject(ReasonInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return reject(ReasonExpired, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return reject(ReasonNotYetValid, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return reject(ReasonInvalidIssuer, err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return reject(ReasonInvalidAudience, err)
	default:
		return reject(ReasonMalformed, err)
	}
}
