package common

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err onto the taxonomy and writes {"error": msg}.
// Internal failures are logged with their real cause and reported generically.
func WriteError(w http.ResponseWriter, logger *zap.SugaredLogger, op string, err error) {
	status := HTTPStatus(err)
	if logger != nil {
		if status >= http.StatusInternalServerError {
			logger.Errorw(op+" failed", "err", err)
		} else {
			logger.Debugw(op+" rejected", "status", status, "err", err)
		}
	}
	WriteJSON(w, status, map[string]string{"error": PublicMessage(err)})
}

// DecodeJSON reads a JSON body into v. A malformed body is ErrValidation.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return fmt.Errorf("%w: empty payload", ErrValidation)
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid payload", ErrValidation)
	}
	return nil
}
