package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"sprout/internal/core"
	"sprout/internal/log"
)

// Sentinels for request bodies and query parameters that cannot be parsed at
// all, as opposed to input that parsed but failed validation.
var (
	errEmptyBody = errors.New("empty request body")
	errMalformed = errors.New("malformed input")
)

// errorBody is the envelope for taxonomy errors: a message, a stable machine
// code and, for validation failures, the offending field.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

// userJSON is the account block returned by the auth endpoints. CreatedAt is
// only populated by /api/auth/me.
type userJSON struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// categoryDetailJSON is the embedded category block carried by history and
// recurring-expense payloads.
type categoryDetailJSON struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	Color     string `json:"color"`
	IsDefault bool   `json:"is_default"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSON fills dst from the request body, folding every decoder failure
// into one of the two parse sentinels.
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		return errEmptyBody
	default:
		return errMalformed
	}
}

// writeError maps a service error onto the wire: validation 400,
// authentication 401, missing resource 404, database unavailable 503 with
// the demo-mode hint, unparseable input 400, anything else a logged 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *core.ValidationError
		ae *core.AuthenticationError
		nf *core.NotFoundError
		ue *core.UnavailableError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ve.Message, Code: core.CodeValidation, Field: ve.Field})
	case errors.As(err, &ae):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: ae.Message, Code: core.CodeAuthentication})
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, errorBody{Error: nf.Error(), Code: core.CodeNotFound})
	case errors.As(err, &ue):
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error":     "Database unavailable",
			"code":      core.CodeDatabase,
			"message":   "The application is running but the database connection failed. This is normal in demo mode.",
			"demo_mode": true,
		})
	case errors.Is(err, errEmptyBody), errors.Is(err, errMalformed):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Please provide valid data.", Code: core.CodeInvalidInput})
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Unhandled request error",
			log.FieldError, err.Error(),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "An unexpected error occurred. Please try again.", Code: core.CodeInternal})
	}
}

// writeFamilyError renders errors in the inline {error, success:false} shape
// the category, preference, rollover and recurring endpoints have always
// used: validation 400, missing resource 404, anything else a logged 500
// with a fixed message.
func (s *Server) writeFamilyError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var (
		ve *core.ValidationError
		nf *core.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": ve.Message, "success": false})
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": nf.Error(), "success": false})
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldError, err.Error(),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": fallback, "success": false})
	}
}

// queryInt reads an integer query parameter, returning def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errMalformed
	}
	return n, nil
}

// pathID parses the {id} path segment. Zero and negative IDs never exist.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseAmount accepts an amount field as either a JSON number or a decimal
// string, the two forms clients send.
func parseAmount(v any) (core.Money, error) {
	switch n := v.(type) {
	case float64:
		return core.MoneyFromFloat(n)
	case string:
		cents, err := core.ParseDecimalToCents(n)
		if err != nil {
			return core.Money{}, err
		}
		return core.Money{Cents: cents}, nil
	default:
		return core.Money{}, core.ErrInvalidAmount
	}
}

// parseCategoryField resolves an optional category_id body field. Absent,
// null and empty-string values all mean "no category".
func parseCategoryField(v any) (*core.CategoryRef, error) {
	switch ref := v.(type) {
	case nil:
		return nil, nil
	case string:
		if ref == "" {
			return nil, nil
		}
		parsed, err := core.ParseCategoryRef(ref)
		if err != nil {
			return nil, err
		}
		return &parsed, nil
	default:
		return nil, core.NewValidationError("Invalid category", "category_id")
	}
}

// categoryIndex loads the user's visible categories keyed by ref for
// embedding category detail into expense payloads.
func (s *Server) categoryIndex(r *http.Request, userID int64) map[core.CategoryRef]core.Category {
	categories := s.categories.List(r.Context(), userID)
	index := make(map[core.CategoryRef]core.Category, len(categories))
	for _, c := range categories {
		index[c.Ref] = c
	}
	return index
}

// categoryDetail resolves a ref against the index. Unresolvable refs (a
// deleted custom category) yield nil, which serializes as JSON null.
func categoryDetail(ref *core.CategoryRef, index map[core.CategoryRef]core.Category) *categoryDetailJSON {
	if ref == nil {
		return nil
	}
	c, ok := index[*ref]
	if !ok {
		return nil
	}
	return &categoryDetailJSON{
		ID:        c.Ref.String(),
		Name:      c.Name,
		Icon:      c.Icon,
		Color:     c.Color,
		IsDefault: c.Ref.IsDefault(),
	}
}
