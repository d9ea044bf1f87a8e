package server

import (
	_ "embed"
	"html/template"
	"net/http"

	"github.com/dgellow/authgate/internal/idp"
	"github.com/dgellow/authgate/internal/log"
)

// ErrorPagePath is where failed logins land unless another page is configured
const ErrorPagePath = "/auth/error"

//go:embed templates/error.html
var errorPageTemplateHTML string

var errorPageTemplate = template.Must(template.New("error").Parse(errorPageTemplateHTML))

// ErrorPageData represents the data for the login error page
type ErrorPageData struct {
	Title      string
	Message    string
	Code       string
	RetryURL   string
	RetryLabel string
}

var errorMessages = map[string]string{
	ErrCodeUnknownProvider:       "That sign-in method is not supported.",
	ErrCodeProviderNotConfigured: "That sign-in method is not available right now.",
	ErrCodeAccessDenied:          "Sign-in was cancelled or permission was not granted.",
	ErrCodeProviderError:         "The identity provider reported an error.",
	ErrCodeMissingCode:           "The identity provider did not complete the sign-in.",
	ErrCodeStateMismatch:         "Your sign-in session expired or was started in another browser. Please try again.",
	ErrCodeTokenExchangeFailed:   "We could not complete sign-in with the identity provider.",
	ErrCodeProfileFetchFailed:    "We could not load your profile from the identity provider.",
	ErrCodeInvalidProfile:        "The identity provider returned an incomplete profile.",
	ErrCodeSessionError:          "We could not start your session.",
}

// ErrorPageHandler renders GET /auth/error?error=<code>&provider=<p>
func (h *AuthHandlers) ErrorPageHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("error")

	data := ErrorPageData{
		Title:      "Sign-in failed",
		Message:    "Something went wrong while signing you in.",
		RetryURL:   "/",
		RetryLabel: "Back to home",
	}
	// Only known codes are echoed back
	if msg, ok := errorMessages[code]; ok {
		data.Message = msg
		data.Code = code
	}
	if p, err := idp.Parse(q.Get("provider")); err == nil {
		if _, err := h.registry.Lookup(p); err == nil {
			data.RetryURL = "/api/auth/" + p.String()
			data.RetryLabel = "Try again"
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := errorPageTemplate.Execute(w, data); err != nil {
		log.LogError("Failed to render error page: %v", err)
	}
}
