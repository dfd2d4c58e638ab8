package panel

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rendis/wfgraph/pkg/schema"
)

// timeAgo returns a human-readable relative time string.
func timeAgo(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func add(a, b int) int { return a + b }

// subtract returns a - b, clamped to 0.
func subtract(a, b int) int {
	return max(a-b, 0)
}

// statusBadge returns the CSS class for a node status overlay.
func statusBadge(status string) string {
	switch status {
	case "completed":
		return "badge-success"
	case "in_progress":
		return "badge-active"
	case "rejected":
		return "badge-error"
	default:
		return "badge-secondary"
	}
}

// truncate shortens s to max runes, appending "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeErr writes err with the status its code maps to. Graph errors keep
// their code in the body.
func writeErr(w http.ResponseWriter, err error) {
	body := map[string]any{"error": err.Error()}
	var ge *schema.GraphError
	if errors.As(err, &ge) {
		body["code"] = ge.Code
		if len(ge.Details) > 0 {
			body["details"] = ge.Details
		}
	}
	writeJSON(w, statusFor(err), body)
}

// statusFor maps graph error codes to HTTP statuses.
func statusFor(err error) int {
	var ge *schema.GraphError
	if !errors.As(err, &ge) {
		return http.StatusInternalServerError
	}
	switch ge.Code {
	case schema.ErrCodeNotFound:
		return http.StatusNotFound
	case schema.ErrCodeValidation, schema.ErrCodeDecode, schema.ErrCodeInvalidAttribute,
		schema.ErrCodeInvalidReference, schema.ErrCodeDuplicateID:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// queryInt extracts an integer query param with a default value.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
