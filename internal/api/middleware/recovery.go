package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/outbreakwatch/outbreakwatch/internal/api/models"
)

// Recovery turns a handler panic into a 500 problem and an error log with
// the stack. http.ErrAbortHandler passes through so the server drops the
// connection as usual.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer recoverPanic(log, w, r)
			next.ServeHTTP(w, r)
		})
	}
}

func recoverPanic(log zerolog.Logger, w http.ResponseWriter, r *http.Request) {
	v := recover()
	switch v {
	case nil:
		return
	case http.ErrAbortHandler:
		panic(v)
	}

	id := GetRequestID(r.Context())
	log.Error().
		Str("request_id", id).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Bytes("stack", debug.Stack()).
		Msgf("panic recovered: %v", v)

	models.KindInternal.New(id, "an unexpected error occurred").WithInstance(r.URL.Path).Write(w)
}
