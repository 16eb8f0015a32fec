package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/appointly/appointly/services/appointment-service/internal/engine"
	"github.com/appointly/appointly/services/appointment-service/internal/model"
	"github.com/appointly/appointly/services/appointment-service/internal/storage"
)

type ScheduleHandler struct {
	schedules *storage.ScheduleStore
	dir       engine.Directory
	logger    *slog.Logger
}

func NewScheduleHandler(schedules *storage.ScheduleStore, dir engine.Directory, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, dir: dir, logger: logger}
}

type scheduleWindow struct {
	Weekday     int  `json:"weekday"`
	StartMinute int  `json:"start_minute"`
	EndMinute   int  `json:"end_minute"`
	Active      bool `json:"active"`
}

type replaceSchedulesRequest struct {
	Windows []scheduleWindow `json:"windows"`
}

// Serve dispatches on method: GET lists the employee's weekly windows, PUT
// replaces them wholesale. Partial edits are deliberately not offered; the
// schedule UI always submits the full week.
func (h *ScheduleHandler) Serve(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPut:
		h.replace(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ScheduleHandler) list(w http.ResponseWriter, r *http.Request) {
	employeeID := strings.TrimSpace(r.URL.Query().Get("employee_id"))
	if employeeID == "" {
		http.Error(w, "employee_id required", http.StatusBadRequest)
		return
	}

	windows, err := h.schedules.ListByEmployee(r.Context(), employeeID)
	if err != nil {
		h.logger.Error("schedule list failed", "employee_id", employeeID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeWindows(w, windows)
}

func (h *ScheduleHandler) replace(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)
	if actor == "" {
		http.Error(w, "missing actor identity", http.StatusUnauthorized)
		return
	}
	employeeID := strings.TrimSpace(r.URL.Query().Get("employee_id"))
	if employeeID == "" {
		http.Error(w, "employee_id required", http.StatusBadRequest)
		return
	}

	if err := h.authorizeOwner(r, employeeID, actor); err != nil {
		switch {
		case errors.Is(err, engine.ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, engine.ErrForbidden):
			http.Error(w, err.Error(), http.StatusForbidden)
		default:
			h.logger.Error("schedule authorization failed", "employee_id", employeeID, "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	var req replaceSchedulesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	windows := make([]model.WorkSchedule, 0, len(req.Windows))
	seen := make(map[int]struct{}, len(req.Windows))
	for _, win := range req.Windows {
		if win.Weekday < 0 || win.Weekday > 6 {
			http.Error(w, "weekday must be 0 (Sunday) through 6 (Saturday)", http.StatusBadRequest)
			return
		}
		if win.StartMinute < 0 || win.EndMinute > 24*60 || win.StartMinute >= win.EndMinute {
			http.Error(w, "window minutes must satisfy 0 <= start < end <= 1440", http.StatusBadRequest)
			return
		}
		if _, dup := seen[win.Weekday]; dup {
			http.Error(w, "at most one window per weekday", http.StatusBadRequest)
			return
		}
		seen[win.Weekday] = struct{}{}
		windows = append(windows, model.WorkSchedule{
			Weekday:     time.Weekday(win.Weekday),
			StartMinute: win.StartMinute,
			EndMinute:   win.EndMinute,
			Active:      win.Active,
		})
	}

	stored, err := h.schedules.ReplaceForEmployee(r.Context(), employeeID, windows)
	if err != nil {
		h.logger.Error("schedule replace failed", "employee_id", employeeID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeWindows(w, stored)
}

// authorizeOwner allows schedule edits only by the owner of the business the
// employee belongs to.
func (h *ScheduleHandler) authorizeOwner(r *http.Request, employeeID, actor string) error {
	emp, ok, err := h.dir.GetEmployee(r.Context(), employeeID)
	if err != nil {
		return err
	}
	if !ok {
		return engine.ErrNotFound
	}
	biz, ok, err := h.dir.GetBusiness(r.Context(), emp.BusinessID)
	if err != nil {
		return err
	}
	if !ok {
		return engine.ErrNotFound
	}
	if biz.OwnerID != actor {
		return engine.ErrForbidden
	}
	return nil
}

func (h *ScheduleHandler) writeWindows(w http.ResponseWriter, windows []model.WorkSchedule) {
	items := make([]scheduleWindow, 0, len(windows))
	for _, win := range windows {
		items = append(items, scheduleWindow{
			Weekday:     int(win.Weekday),
			StartMinute: win.StartMinute,
			EndMinute:   win.EndMinute,
			Active:      win.Active,
		})
	}
	writeJSON(w, http.StatusOK, items)
}
