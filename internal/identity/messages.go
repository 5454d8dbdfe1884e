package identity

import "errors"

// Sign-in failure codes reported by the client-side provider flow
const (
	CodePopupBlocked       = "auth/popup-blocked"
	CodePopupClosedByUser  = "auth/popup-closed-by-user"
	CodeUnauthorizedDomain = "auth/unauthorized-domain"
)

const (
	msgPopupBlocked       = "The sign-in popup was blocked. Please allow popups for this site."
	msgPopupClosed        = "Sign-in was cancelled. Please try again."
	msgUnauthorizedDomain = "This domain is not authorized for sign-in. Contact the administrator."
	msgGeneric            = "Sign-in failed. Please try again."
)

// Message maps a provider failure code to the user-facing message
func Message(code string) string {
	switch code {
	case CodePopupBlocked:
		return msgPopupBlocked
	case CodePopupClosedByUser:
		return msgPopupClosed
	case CodeUnauthorizedDomain:
		return msgUnauthorizedDomain
	default:
		return msgGeneric
	}
}

// ErrorMessage maps a verification error to the user-facing message
func ErrorMessage(err error) string {
	if errors.Is(err, ErrUnauthorizedDomain) {
		return msgUnauthorizedDomain
	}
	return msgGeneric
}
