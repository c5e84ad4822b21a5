package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/canteenhq/go-canteen-dining/internal/dining"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func errBody(msg, code string) map[string]string {
	return map[string]string{"error": msg, "error_code": code}
}

// writeErr maps the error taxonomy onto HTTP statuses. Unrecognized and
// transient errors become a generic try-again signal; internals stay in
// the logs.
func writeErr(w http.ResponseWriter, err error) {
	kind := dining.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errBody("temporary server error, please try again", dining.KindTransient.Code()))
		return
	}
	writeJSON(w, status, errBody(err.Error(), kind.Code()))
}

var statusByKind = map[dining.Kind]int{
	dining.KindValidation:      http.StatusBadRequest,
	dining.KindDuplicateOrder:  http.StatusConflict,
	dining.KindWrongState:      http.StatusConflict,
	dining.KindOutsideWindow:   http.StatusUnprocessableEntity,
	dining.KindDatePast:        http.StatusUnprocessableEntity,
	dining.KindPastCutoff:      http.StatusUnprocessableEntity,
	dining.KindMenuUnpublished: http.StatusUnprocessableEntity,
	dining.KindMenuRevoked:     http.StatusUnprocessableEntity,
	dining.KindMenuNotFound:    http.StatusNotFound,
	dining.KindNotFound:        http.StatusNotFound,
	dining.KindUnauthorized:    http.StatusForbidden,
	dining.KindTokenExpired:    http.StatusUnauthorized,
	dining.KindTokenRevoked:    http.StatusUnauthorized,
	dining.KindTokenInvalid:    http.StatusUnauthorized,
}
