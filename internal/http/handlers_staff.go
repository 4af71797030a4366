package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	"github.com/fakehospital/portal/internal/domain/care"
	"github.com/fakehospital/portal/internal/service"
)

// StaffProvisioner creates staff accounts.
type StaffProvisioner interface {
	Provision(ctx context.Context, in service.StaffInput) (*service.ProvisionResult, error)
}

// StaffHandlers serves staff provisioning for admins. Authorization is left to
// Guard, which covers /admin and /api/admin.
type StaffHandlers struct {
	Svc      StaffProvisioner
	Pages    *PageHandlers
	Renderer *TemplateRenderer
	Logger   *slog.Logger
}

func (h *StaffHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// staffRequest is the JSON body of POST /api/admin/staff.
type staffRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

func (req staffRequest) trimmed() staffRequest {
	return staffRequest{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.TrimSpace(req.Email),
		Role:      strings.ToLower(strings.TrimSpace(req.Role)),
	}
}

func (req staffRequest) validate() map[string]string {
	return service.ValidateStaffInput(req.input())
}

func (req staffRequest) input() service.StaffInput {
	return service.StaffInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      domainauth.Role(req.Role),
	}
}

// CreateForm handles the provisioning form. On success the page shows the
// generated credential exactly once and must never be cached.
// POST /admin/staff.
func (h *StaffHandlers) CreateForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	req := staffRequest{
		FirstName: r.PostFormValue("firstName"),
		LastName:  r.PostFormValue("lastName"),
		Email:     r.PostFormValue("email"),
		Role:      r.PostFormValue("role"),
	}.trimmed()
	form := map[string]string{"firstName": req.FirstName, "lastName": req.LastName, "email": req.Email, "role": req.Role}

	if fields := req.validate(); fields != nil {
		renderPage(w, h.Renderer, http.StatusUnprocessableEntity,
			adminData(r, h.recentStaff(r)).WithForm(form).WithFieldErrors(fields).WithError(msgFixBelow).Build())
		return
	}

	res, err := h.Svc.Provision(r.Context(), req.input())
	if err != nil {
		fields, general := formError(err, msgStaffFailed)
		status := http.StatusUnprocessableEntity
		if general != "" {
			status = http.StatusInternalServerError
			h.logger().ErrorContext(r.Context(), "staff provisioning failed", "error", err)
		}
		renderPage(w, h.Renderer, status,
			adminData(r, h.recentStaff(r)).WithForm(form).WithFieldErrors(fields).WithError(general).Build())
		return
	}

	renderPage(w, h.Renderer, http.StatusCreated,
		adminData(r, h.recentStaff(r)).
			With("Created", res.Identity).
			With("Credential", res.Credential).
			With("ClearAfterSeconds", int(res.ClearAfter.Seconds())).
			Build())
}

func (h *StaffHandlers) recentStaff(r *http.Request) []care.StaffMember {
	if h.Pages == nil {
		return nil
	}
	return h.Pages.recentStaff(r)
}

// staffResponse is the JSON success body of POST /api/admin/staff.
type staffResponse struct {
	Credential        string              `json:"credential"`
	ClearAfterSeconds int                 `json:"clearAfterSeconds"`
	Identity          domainauth.Identity `json:"identity"`
}

// CreateAPI is the JSON variant of CreateForm.
// POST /api/admin/staff.
func (h *StaffHandlers) CreateAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnsupportedMediaType,
			ErrCode: "unsupported_media_type",
			Message: "Content-Type must be application/json.",
		})
		return
	}
	var req staffRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req = req.trimmed()
	if fields := req.validate(); fields != nil {
		WriteError(w, ErrorParams{Code: http.StatusUnprocessableEntity, ErrCode: "validation_failed", Message: msgFixBelow, Fields: fields})
		return
	}

	res, err := h.Svc.Provision(r.Context(), req.input())
	if err != nil {
		fields, general := formError(err, msgStaffFailed)
		if general != "" {
			h.logger().ErrorContext(r.Context(), "staff provisioning failed", "error", err)
			WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "provisioning_failed", Message: general})
			return
		}
		code := "validation_failed"
		status := http.StatusUnprocessableEntity
		if fields["email"] == msgEmailTaken {
			code, status = "duplicate_email", http.StatusConflict
		}
		WriteError(w, ErrorParams{Code: status, ErrCode: code, Message: msgFixBelow, Fields: fields})
		return
	}

	WriteJSON(w, http.StatusCreated, staffResponse{
		Credential:        res.Credential,
		ClearAfterSeconds: int(res.ClearAfter.Seconds()),
		Identity:          res.Identity,
	})
}

const maxStaffListLimit = 200

// ListAPI returns the most recently provisioned staff.
// GET /api/admin/staff?limit=<n>.
func (h *StaffHandlers) ListAPI(w http.ResponseWriter, r *http.Request) {
	if h.Pages == nil || h.Pages.Staff == nil {
		WriteJSON(w, http.StatusOK, map[string]any{"staff": []care.StaffMember{}})
		return
	}
	staff, err := h.Pages.Staff.ListStaff(r.Context(), ParseLimit(r, service.DefaultStaffListLimit, maxStaffListLimit))
	if err != nil {
		h.logger().ErrorContext(r.Context(), "list staff failed", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "list_failed", Message: msgUnavailable})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"staff": staff})
}
