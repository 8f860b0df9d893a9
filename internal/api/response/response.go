// Package response writes JSON and problem bodies stamped with the request ID.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/outbreakwatch/outbreakwatch/internal/api/middleware"
	"github.com/outbreakwatch/outbreakwatch/internal/api/models"
)

// JSON encodes data with the given status. A nil data writes headers only.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	h := w.Header()
	if id := middleware.GetRequestID(r.Context()); id != "" {
		h.Set("X-Request-Id", id)
	}
	h.Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// Problem writes a problem of kind whose instance is the request path.
func Problem(w http.ResponseWriter, r *http.Request, kind models.Kind, detail string) {
	write(w, r, kind.New(middleware.GetRequestID(r.Context()), detail))
}

// BadRequest writes a validation problem listing the offending fields.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, fields ...models.FieldError) {
	write(w, r, models.NewBadRequest(middleware.GetRequestID(r.Context()), detail, fields))
}

func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, models.KindNotFound, detail)
}

func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, models.KindInternal, detail)
}

func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, models.KindUnavailable, detail)
}

func write(w http.ResponseWriter, r *http.Request, p *models.Problem) {
	p.WithInstance(r.URL.Path).Write(w)
}
