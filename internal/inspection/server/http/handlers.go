package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/autopeer-io/atsinspect/internal/inspection/core/catalog"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/model"
	"github.com/autopeer-io/atsinspect/internal/inspection/core/service"
)

// InspectionService is the set of operations the API exposes.
type InspectionService interface {
	Ready(ctx context.Context) error
	RegisterVehicle(ctx context.Context, p model.Principal, in service.VehicleInput) (*model.Vehicle, error)
	GetVehicle(ctx context.Context, regnNo string) (*model.Vehicle, error)
	Rules(c catalog.Category) ([]catalog.Rule, error)
	Start(ctx context.Context, p model.Principal, regnNo string) (*model.TestInstance, error)
	SubmitVisual(ctx context.Context, p model.Principal, regnNo string, rules map[string]any) (*service.SubmissionResult, error)
	SubmitFunctional(ctx context.Context, p model.Principal, regnNo, ruleID string, value any) (*service.SubmissionResult, error)
	PendingVisual(ctx context.Context, p model.Principal) ([]string, error)
	PendingFunctional(ctx context.Context, p model.Principal, ruleID string) ([]string, error)
	Status(ctx context.Context, regnNo string) (*service.StatusView, error)
	ListByCenter(ctx context.Context, centerID string) ([]service.InstanceSummary, error)
	MarkComplete(ctx context.Context, p model.Principal, regnNo string) (*model.TestInstance, error)
}

type handlers struct {
	svc InspectionService
}

type registerVehicleRequest struct {
	RegnNo    string `json:"regnNo" validate:"required,max=32"`
	BookingID string `json:"bookingId" validate:"required"`
	CenterID  string `json:"centerId"`
	EngineNo  string `json:"engineNo"`
	ChassisNo string `json:"chassisNo"`
}

type vehicleRequest struct {
	RegnNo string `json:"regnNo" validate:"required"`
}

type visualSubmitRequest struct {
	RegnNo string         `json:"regnNo" validate:"required"`
	Rules  map[string]any `json:"rules" validate:"required"`
}

type functionalSubmitRequest struct {
	RegnNo string `json:"regnNo" validate:"required"`
	Rule   string `json:"rule" validate:"required"`
	Value  any    `json:"value" validate:"required"`
}

type submitResponse struct {
	Message           string `json:"message"`
	IsCompleted       bool   `json:"isCompleted"`
	InstanceCompleted bool   `json:"instanceCompleted"`
}

type pendingResponse struct {
	Pending []string `json:"pending"`
}

func principal(r *http.Request) model.Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}

func (h *handlers) registerVehicle(w http.ResponseWriter, r *http.Request) {
	var req registerVehicleRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	v, err := h.svc.RegisterVehicle(r.Context(), principal(r), service.VehicleInput{
		RegnNo:    req.RegnNo,
		BookingID: req.BookingID,
		CenterID:  req.CenterID,
		EngineNo:  req.EngineNo,
		ChassisNo: req.ChassisNo,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, v)
}

func (h *handlers) getVehicle(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.GetVehicle(r.Context(), mux.Vars(r)["regnNo"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

func (h *handlers) rules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.svc.Rules(catalog.Category(mux.Vars(r)["category"]))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rules)
}

func (h *handlers) start(w http.ResponseWriter, r *http.Request) {
	var req vehicleRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	inst, err := h.svc.Start(r.Context(), principal(r), req.RegnNo)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, inst)
}

func (h *handlers) pendingVisual(w http.ResponseWriter, r *http.Request) {
	regnNos, err := h.svc.PendingVisual(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, pendingResponse{Pending: regnNos})
}

func (h *handlers) submitVisual(w http.ResponseWriter, r *http.Request) {
	var req visualSubmitRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	res, err := h.svc.SubmitVisual(r.Context(), principal(r), req.RegnNo, req.Rules)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, submitResponse{
		Message:           "Visual test submitted successfully",
		IsCompleted:       res.Record.IsCompleted,
		InstanceCompleted: res.InstanceCompleted,
	})
}

func (h *handlers) pendingFunctional(w http.ResponseWriter, r *http.Request) {
	regnNos, err := h.svc.PendingFunctional(r.Context(), principal(r), mux.Vars(r)["rule"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, pendingResponse{Pending: regnNos})
}

func (h *handlers) submitFunctional(w http.ResponseWriter, r *http.Request) {
	var req functionalSubmitRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	res, err := h.svc.SubmitFunctional(r.Context(), principal(r), req.RegnNo, req.Rule, req.Value)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, submitResponse{
		Message:           fmt.Sprintf("Functional test for %s updated", req.RegnNo),
		IsCompleted:       res.Record.IsCompleted,
		InstanceCompleted: res.InstanceCompleted,
	})
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Status(r.Context(), mux.Vars(r)["regnNo"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

func (h *handlers) listByCenter(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListByCenter(r.Context(), principal(r).CenterID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (h *handlers) complete(w http.ResponseWriter, r *http.Request) {
	var req vehicleRequest
	if err := decode(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	inst, err := h.svc.MarkComplete(r.Context(), principal(r), req.RegnNo)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, inst)
}
