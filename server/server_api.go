package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"energyadmin/backend"
	"energyadmin/entity"
	"energyadmin/pages"

	"github.com/julienschmidt/httprouter"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxBodySize     = 1 << 20
	defaultLogLimit = 100
	maxLogLimit     = 1000
)

type planEdit struct {
	Name  *string `json:"name"`
	Price *string `json:"price"`
}

type payment struct {
	Amount string `json:"amount"`
}

type assignment struct {
	PlanId *string `json:"plan_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type activator interface {
	Active() bool
	Activate(ctx context.Context) error
}

// ensureActive loads the page on first use so actions can be called without a prior GET
func ensureActive(ctx context.Context, page activator) error {
	if page.Active() {
		return nil
	}
	return page.Activate(ctx)
}

// statusCode maps store and page errors to http codes
func statusCode(err error) int {
	switch {
	case backend.IsValidation(err):
		return http.StatusBadRequest
	case backend.IsNotFound(err):
		return http.StatusNotFound
	case backend.IsTransport(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, pages.ErrInactive):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) readJson(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return &entity.ValidationError{Field: "body", Message: err.Error()}
	}
	if s.logger != nil {
		s.logger.RawDataEvent("IN", string(body))
	}
	if err = json.Unmarshal(body, v); err != nil {
		return &entity.ValidationError{Field: "body", Message: err.Error()}
	}
	return nil
}

func (s *Server) writeJson(w http.ResponseWriter, route string, code int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.writeError(w, route, err)
		return
	}
	if s.logger != nil {
		s.logger.RawDataEvent("OUT", string(data))
	}
	observeRequest(route, code)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

func (s *Server) writeError(w http.ResponseWriter, route string, err error) {
	code := statusCode(err)
	if code == http.StatusInternalServerError && s.logger != nil {
		s.logger.Error(fmt.Sprintf("api: %s", route), err)
	}
	data, _ := json.Marshal(errorResponse{Error: err.Error()})
	observeRequest(route, code)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	const route = "dashboard"
	if err := s.pages.Dashboard.Activate(r.Context()); err != nil {
		s.writeError(w, route, err)
		return
	}
	s.writeJson(w, route, http.StatusOK, s.pages.Dashboard.State())
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	const route = "plans"
	if err := s.pages.Plans.Activate(r.Context()); err != nil {
		s.writeError(w, route, err)
		return
	}
	s.writeJson(w, route, http.StatusOK, s.pages.Plans.State())
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	const route = "plans_create"
	plans := s.pages.Plans
	var input entity.PlanInput
	err := s.readJson(r, &input)
	if err == nil {
		err = ensureActive(r.Context(), plans)
	}
	if err == nil {
		err = plans.Create(r.Context(), input)
	}
	if err != nil {
		s.writeError(w, route, err)
		return
	}
	s.writeJson(w, route, http.StatusCreated, plans.State())
}

func (s *Server) handleEditPlan(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	const route = "plans_edit"
	plans := s.pages.Plans
	var edit planEdit
	err := s.readJson(r, &edit)
	if err == nil {
		err = ensureActive(r.Context(), plans)
	}
	if err == nil {
		err = plans.BeginEdit(params.ByName("id"))
	}
	if err != nil {
		s.writeError(w, route, err)
		return
	}
	if edit.Name != nil {
		plans.EditName(*edit.Name)
	}
	if edit.Price != nil {
		err = plans.EditPrice(*edit.Price)
	}
	if err == nil {
		err = plans.SaveEdit(r.Context())
	}
	if err != nil {
		plans.CancelEdit()
		s.writeError(w, route, err)
		return
	}
	s.writeJson(w, route, http.StatusOK, plans.State())
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	const route = "plans_delete"
	plans := s.pages.Plans
	err := ensureActive(r.Context(), plans)
	if err == nil {
		err = plans.Delete(r.Context(), params.ByName("id"))
	}
	if err != nil {
		s.writeError(w, route, err)
		return
	}
	s.writeJson(w, route, http.StatusOK, plans.State())
}

func (s *Server) handleToggleFeatured(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	const route = "plans_featured"
	plans := s.pages.Plans
	err := ensureActive(r.Context(), plans)
	if err == nil {
		err = plans.ToggleFeatured(r.Context(), params.ByName("id"))
	}
	if err != nil {
		s.writeError(w, route, err)
		return
	}
	s.writeJson(w, route, http.StatusOK, plans.State())
}

func (s *Server) handleBilling(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	const route = "billing"
	if err := s.pages.Billing.Activate(r.Context()); err != nil {
		s.writeError(w, route, err)
		return
	}
	s.writeJson(w, route, http.StatusOK, s.pages.Billing.State())
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	const route = "billing_pay"
	billing := s.pages.Billing
	var body payment
	err := s.readJson(r, &body)
	if err == nil {
		err = ensureActive(r.Context(), billing)
	}
	if err == nil {
		err = billing.Pay(r.Context(), params.ByName("id"), body.Amount)
	}
	if err != nil {
		s.writeError(w, route, err)
		return
	}
	s.writeJson(w, route, http.StatusOK, billing.State())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	const route = "billing_export"
	billing := s.pages.Billing
	if err := billing.Activate(r.Context()); err != nil {
		s.writeError(w, route, err)
		return
	}
	var buf bytes.Buffer
	if err := billing.Export(&buf); err != nil {
		s.writeError(w, route, err)
		return
	}
	observeRequest(route, http.StatusOK)
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="billing.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	const route = "admin"
	if err := s.pages.Admin.Activate(r.Context()); err != nil {
		s.writeError(w, route, err)
		return
	}
	s.writeJson(w, route, http.StatusOK, s.pages.Admin.State())
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	const route = "admin_assign"
	admin := s.pages.Admin
	var body assignment
	err := s.readJson(r, &body)
	if err == nil {
		err = ensureActive(r.Context(), admin)
	}
	if err == nil {
		err = admin.Assign(r.Context(), params.ByName("id"), body.PlanId)
	}
	if err != nil {
		s.writeError(w, route, err)
		return
	}
	s.writeJson(w, route, http.StatusOK, admin.State())
}

// handleLog serves the latest log messages; ?limit= caps the count
func (s *Server) handleLog(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	const route = "log"
	if s.database == nil {
		observeRequest(route, http.StatusNotFound)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(errorResponse{Error: "log storage is disabled"})
		return
	}
	limit := int64(defaultLogLimit)
	if value := r.URL.Query().Get("limit"); value != "" {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 1 || n > maxLogLimit {
			s.writeError(w, route, &entity.ValidationError{Field: "limit", Message: fmt.Sprintf("must be between 1 and %d", maxLogLimit)})
			return
		}
		limit = n
	}
	messages, err := s.database.ReadLog(r.Context(), limit)
	if err != nil {
		s.writeError(w, route, err)
		return
	}
	s.writeJson(w, route, http.StatusOK, messages)
}
