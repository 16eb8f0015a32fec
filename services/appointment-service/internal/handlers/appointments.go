// Package handlers is the HTTP surface of appointment-service. Handlers
// parse and validate, call the engine and translate its sentinel errors to
// status codes; they hold no scheduling logic of their own.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/appointly/appointly/services/appointment-service/internal/engine"
	"github.com/appointly/appointly/services/appointment-service/internal/model"
)

// actorID returns the authenticated caller's user id. The gateway in front
// of this service verifies credentials and forwards the identity header.
func actorID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Actor-Id"))
}

type AppointmentHandler struct {
	engine *engine.Engine
	dir    engine.Directory
	logger *slog.Logger
}

func NewAppointmentHandler(eng *engine.Engine, dir engine.Directory, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{engine: eng, dir: dir, logger: logger}
}

type createAppointmentRequest struct {
	BusinessID string `json:"business_id"`
	ServiceID  string `json:"service_id"`
	EmployeeID string `json:"employee_id"`
	StartTime  string `json:"start_time"`
	Notes      string `json:"notes"`
}

type updateStatusRequest struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
	Reason        string `json:"reason"`
}

type approveRequest struct {
	AppointmentID string `json:"appointment_id"`
}

type appointmentResponse struct {
	AppointmentID      string `json:"appointment_id"`
	CustomerID         string `json:"customer_id"`
	BusinessID         string `json:"business_id"`
	ServiceID          string `json:"service_id"`
	EmployeeID         string `json:"employee_id"`
	StartTime          string `json:"start_time"`
	EndTime            string `json:"end_time"`
	Price              string `json:"price"`
	Status             string `json:"status"`
	OwnerApproved      bool   `json:"owner_approved"`
	EmployeeApproved   bool   `json:"employee_approved"`
	PaymentStatus      string `json:"payment_status"`
	Notes              string `json:"notes,omitempty"`
	CancellationReason string `json:"cancellation_reason,omitempty"`
	CreatedAt          string `json:"created_at"`
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func toAppointmentResponse(a model.Appointment) appointmentResponse {
	return appointmentResponse{
		AppointmentID:      a.ID,
		CustomerID:         a.CustomerID,
		BusinessID:         a.BusinessID,
		ServiceID:          a.ServiceID,
		EmployeeID:         a.EmployeeID,
		StartTime:          a.StartTime.UTC().Format(time.RFC3339),
		EndTime:            a.EndTime.UTC().Format(time.RFC3339),
		Price:              a.Price,
		Status:             string(a.Status),
		OwnerApproved:      a.OwnerApproved,
		EmployeeApproved:   a.EmployeeApproved,
		PaymentStatus:      string(a.PaymentStatus),
		Notes:              a.Notes,
		CancellationReason: a.CancellationReason,
		CreatedAt:          a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeEngineError maps the engine's sentinel errors onto status codes.
// Anything untyped is a dependency failure and stays a 500 with the detail
// kept out of the response body.
func (h *AppointmentHandler) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, engine.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, engine.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor := actorID(r)
	if actor == "" {
		http.Error(w, "missing actor identity", http.StatusUnauthorized)
		return
	}

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	if req.BusinessID == "" || req.ServiceID == "" || req.EmployeeID == "" {
		http.Error(w, "business_id, service_id and employee_id are required", http.StatusBadRequest)
		return
	}

	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}

	appt, err := h.engine.CreateAppointment(r.Context(), engine.BookingParams{
		CustomerID: actor,
		BusinessID: req.BusinessID,
		ServiceID:  req.ServiceID,
		EmployeeID: req.EmployeeID,
		StartTime:  startTime,
		Notes:      strings.TrimSpace(req.Notes),
	})
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor := actorID(r)
	if actor == "" {
		http.Error(w, "missing actor identity", http.StatusUnauthorized)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}
	status, ok := model.ParseStatus(strings.TrimSpace(req.Status))
	if !ok {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	appt, err := h.engine.UpdateAppointmentStatus(r.Context(), req.AppointmentID, status, actor, strings.TrimSpace(req.Reason))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *AppointmentHandler) ApproveByOwner(w http.ResponseWriter, r *http.Request) {
	h.approve(w, r, h.engine.ApproveByOwner)
}

func (h *AppointmentHandler) ApproveByEmployee(w http.ResponseWriter, r *http.Request) {
	h.approve(w, r, h.engine.ApproveByEmployee)
}

func (h *AppointmentHandler) approve(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, appointmentID, actorID string) (model.Appointment, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor := actorID(r)
	if actor == "" {
		http.Error(w, "missing actor identity", http.StatusUnauthorized)
		return
	}

	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	appt, err := fn(r.Context(), req.AppointmentID, actor)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor := actorID(r)
	if actor == "" {
		http.Error(w, "missing actor identity", http.StatusUnauthorized)
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "id required", http.StatusBadRequest)
		return
	}

	appt, err := h.engine.GetAppointmentByID(r.Context(), id, actor)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *AppointmentHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor := actorID(r)
	if actor == "" {
		http.Error(w, "missing actor identity", http.StatusUnauthorized)
		return
	}

	appts, err := h.engine.ListCustomerAppointments(r.Context(), actor, parseLimit(r))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	h.writeAppointmentList(w, appts)
}

func (h *AppointmentHandler) ListBusiness(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	actor := actorID(r)
	if actor == "" {
		http.Error(w, "missing actor identity", http.StatusUnauthorized)
		return
	}
	businessID := strings.TrimSpace(r.URL.Query().Get("business_id"))
	if businessID == "" {
		http.Error(w, "business_id required", http.StatusBadRequest)
		return
	}

	appts, err := h.engine.ListBusinessAppointments(r.Context(), businessID, actor, parseLimit(r))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	h.writeAppointmentList(w, appts)
}

func (h *AppointmentHandler) writeAppointmentList(w http.ResponseWriter, appts []model.Appointment) {
	items := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		items = append(items, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, items)
}

// Slots answers "when can I book employee E for service S on date D". The
// duration comes from the service; duration_minutes is accepted as an
// explicit override for clients probing ad-hoc lengths.
func (h *AppointmentHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	employeeID := strings.TrimSpace(r.URL.Query().Get("employee_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	serviceID := strings.TrimSpace(r.URL.Query().Get("service_id"))
	if employeeID == "" || dateStr == "" {
		http.Error(w, "employee_id and date are required", http.StatusBadRequest)
		return
	}

	date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	durationMins := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("duration_minutes")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 8*60 {
			http.Error(w, "invalid duration_minutes", http.StatusBadRequest)
			return
		}
		durationMins = n
	} else {
		if serviceID == "" {
			http.Error(w, "service_id or duration_minutes required", http.StatusBadRequest)
			return
		}
		svc, ok, err := h.dir.GetService(r.Context(), serviceID)
		if err != nil {
			h.writeEngineError(w, r, err)
			return
		}
		if !ok {
			http.Error(w, "service not found", http.StatusNotFound)
			return
		}
		durationMins = svc.DurationMinutes
	}

	slots, err := h.engine.ComputeAvailableSlots(r.Context(), employeeID, date, durationMins)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotItem{
			StartTime: s.Start.UTC().Format(time.RFC3339),
			EndTime:   s.End.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func parseLimit(r *http.Request) int {
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	return limit
}
