// Package respond writes JSON responses and maps apperr kinds to status
// codes. It is shared by the handlers and the middleware in front of them.
package respond

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/animechat/server/internal/apperr"
)

// Message is the body of every error response and of plain acknowledgements.
type Message struct {
	Message string `json:"message"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes err as {"message": ...}. Unknown and misconfiguration errors
// are logged with their cause and answered with a generic message.
func Error(w http.ResponseWriter, r *http.Request, logger *logrus.Logger, err error) {
	kind := apperr.KindOf(err)
	status := kind.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"kind":   kind.String(),
		}).WithError(err).Error("request failed")
	}
	JSON(w, status, Message{Message: apperr.PublicMessage(err)})
}

// Decode reads a JSON body into v. An empty or malformed body is a
// Validation error.
func Decode(r *http.Request, v any) error {
	if r.Body == nil {
		return apperr.New(apperr.Validation, "request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Wrap(apperr.Validation, "invalid request body", err)
	}
	return nil
}
