package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

const problemContentType = "application/problem+json"

// ProblemDetails is an RFC 7807 error body.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

// NewProblem titles the problem with the standard status text.
func NewProblem(status int, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:     "about:blank",
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: instance,
	}
}

func (pd *ProblemDetails) Error() string {
	return fmt.Sprintf("%d %s: %s", pd.Status, pd.Title, pd.Detail)
}

func (pd *ProblemDetails) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", problemContentType)
	w.WriteHeader(pd.Status)
	json.NewEncoder(w).Encode(pd)
}

// WriteInternalServerError reports err.Error() to the client; callers pass a
// sanitized error.
func WriteInternalServerError(w http.ResponseWriter, err error, instance string) {
	NewProblem(http.StatusInternalServerError, err.Error(), instance).Write(w)
}

func WriteBadRequest(w http.ResponseWriter, detail, instance string) {
	NewProblem(http.StatusBadRequest, detail, instance).Write(w)
}

func WriteNotFound(w http.ResponseWriter, detail, instance string) {
	NewProblem(http.StatusNotFound, detail, instance).Write(w)
}
