package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/autopeer-io/atsinspect/internal/inspection/core"
	"github.com/autopeer-io/atsinspect/pkg/log"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var statusByKind = map[core.Kind]int{
	core.KindNotFound:           http.StatusNotFound,
	core.KindConflict:           http.StatusConflict,
	core.KindInvalidInput:       http.StatusBadRequest,
	core.KindPreconditionFailed: http.StatusPreconditionFailed,
	core.KindStoreUnavailable:   http.StatusServiceUnavailable,
}

// writeServiceError maps a service error to its HTTP status.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := core.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		log.C(r.Context()).Error(err, "Request failed", "path", r.URL.Path)
	}

	msg := err.Error()
	var e *core.Error
	if errors.As(err, &e) && e.Msg != "" {
		msg = e.Msg
	}
	writeError(w, r, status, string(kind), msg)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, kind, msg string) {
	writeJSON(w, r, status, errorResponse{Error: kind, Message: msg})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.C(r.Context()).Warn("Failed to encode response", "error", err)
	}
}

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into req and validates its struct tags. Numbers
// are kept as json.Number so rule values are parsed by the catalog.
func decode(r *http.Request, req any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(req); err != nil {
		return core.E(core.KindInvalidInput, "http.decode", "malformed JSON body", err)
	}
	if err := validate.Struct(req); err != nil {
		return core.E(core.KindInvalidInput, "http.decode", describe(err), nil)
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %q", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
