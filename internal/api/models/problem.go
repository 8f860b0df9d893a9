package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 error body. TraceID echoes the request ID so a
// client report can be matched to the server logs.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError points at one invalid query parameter.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ProblemTypeBase prefixes every problem type URI.
const ProblemTypeBase = "https://outbreakwatch.dev/problems/"

// Problem type URIs.
const (
	ProblemTypeValidation      = ProblemTypeBase + "validation-error"
	ProblemTypeNotFound        = ProblemTypeBase + "not-found"
	ProblemTypeTooManyRequests = ProblemTypeBase + "too-many-requests"
	ProblemTypeInternal        = ProblemTypeBase + "internal-error"
	ProblemTypeUnavailable     = ProblemTypeBase + "service-unavailable"
	ProblemTypeTLSRequired     = ProblemTypeBase + "tls-required"
)

// Kind fixes the type, title and status of a family of problems.
type Kind struct {
	Type   string
	Title  string
	Status int
}

// Problem kinds returned by the API.
var (
	KindValidation  = Kind{ProblemTypeValidation, "Validation error", http.StatusBadRequest}
	KindNotFound    = Kind{ProblemTypeNotFound, "Not found", http.StatusNotFound}
	KindRateLimited = Kind{ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests}
	KindInternal    = Kind{ProblemTypeInternal, "Internal server error", http.StatusInternalServerError}
	KindUnavailable = Kind{ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable}
	KindTLSRequired = Kind{ProblemTypeTLSRequired, "HTTPS required", http.StatusForbidden}
)

// New builds a problem of this kind.
func (k Kind) New(traceID, detail string) *Problem {
	return &Problem{
		Type:    k.Type,
		Title:   k.Title,
		Status:  k.Status,
		Detail:  detail,
		TraceID: traceID,
	}
}

// NewProblem builds a problem outside the predefined kinds.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return Kind{problemType, title, status}.New(traceID, "")
}

// WithDetail sets Detail and returns p.
func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

// WithInstance sets Instance and returns p.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// Write sends p as application/problem+json.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest is a 400 carrying per-field errors.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	p := KindValidation.New(traceID, detail)
	p.Errors = errors
	return p
}

func NewNotFound(traceID, detail string) *Problem { return KindNotFound.New(traceID, detail) }

func NewTooManyRequests(traceID, detail string) *Problem { return KindRateLimited.New(traceID, detail) }

func NewInternalError(traceID, detail string) *Problem { return KindInternal.New(traceID, detail) }

func NewServiceUnavailable(traceID, detail string) *Problem {
	return KindUnavailable.New(traceID, detail)
}
