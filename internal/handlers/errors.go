package handlers

import (
	"github.com/gin-gonic/gin"
)

// User-facing error messages
const (
	MsgTooManyRequests      = "Too many requests. Please try again later."
	MsgInvalidBody          = "Invalid request body."
	MsgVerificationRequired = "Verification required."
	MsgVerificationFailed   = "Bot verification failed. Please try again."
	MsgAlreadyRegistered    = "This email or phone is already on the waitlist."
	MsgInvalidData          = "Invalid input data."
	MsgSomethingWentWrong   = "Something went wrong. Please try again."
	MsgInternalServerError  = "Internal server error."
)

// attachError attaches err to the gin context so the observability middleware
// can include the reason in the request log. c.Error() returns *gin.Error (not
// the error interface), so we suppress errcheck here intentionally.
func attachError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err) //nolint:errcheck
	}
}

// respondError sends an error JSON response and attaches the error to the gin context
// so the observability middleware can include the reason in the request log.
func respondError(c *gin.Context, status int, message string, err error) {
	attachError(c, err)
	c.JSON(status, gin.H{"error": message})
}
