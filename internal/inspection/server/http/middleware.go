package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/autopeer-io/atsinspect/internal/inspection/core/model"
	"github.com/autopeer-io/atsinspect/pkg/log"
)

// Identity headers set by the authenticating gateway in front of the API.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderUserID    = "X-User-ID"
	HeaderUserName  = "X-User-Name"
	HeaderUserRole  = "X-User-Role"
	HeaderCenter    = "X-ATS-Center"
)

// requestID tags every request with an id, reusing the caller's when present.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if m := mux.CurrentRoute(r); m != nil {
			if tpl, err := m.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		log.C(r.Context()).Debug("HTTP request",
			"method", r.Method, "route", route, "status", rec.status, "duration", time.Since(start))
	})
}

// authenticate builds the caller's Principal from the gateway headers and
// rejects requests without a user id or with a role outside roles. An empty
// roles list admits any authenticated caller.
func authenticate(roles ...model.Role) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := model.Principal{
				ID:       strings.TrimSpace(r.Header.Get(HeaderUserID)),
				Name:     strings.TrimSpace(r.Header.Get(HeaderUserName)),
				Role:     model.Role(strings.ToUpper(strings.TrimSpace(r.Header.Get(HeaderUserRole)))),
				CenterID: strings.TrimSpace(r.Header.Get(HeaderCenter)),
			}
			if p.ID == "" {
				writeError(w, r, http.StatusUnauthorized, "Unauthenticated", "missing "+HeaderUserID+" header")
				return
			}
			if len(roles) > 0 && !p.HasRole(roles...) {
				writeError(w, r, http.StatusForbidden, "Forbidden", "role "+string(p.Role)+" may not perform this action")
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
		})
	}
}
