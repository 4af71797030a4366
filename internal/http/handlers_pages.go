package httpx

import (
	"context"
	"log/slog"
	"net/http"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	"github.com/fakehospital/portal/internal/domain/care"
	"github.com/fakehospital/portal/internal/service"
)

// Dashboards reads the data behind each role's home page.
type Dashboards interface {
	Patient(ctx context.Context, sess domainauth.Session) (service.PatientView, error)
	Clinician(ctx context.Context, sess domainauth.Session) (service.ClinicianView, error)
}

// StaffDirectory lists recently provisioned staff for the admin page.
type StaffDirectory interface {
	ListStaff(ctx context.Context, limit int) ([]care.StaffMember, error)
}

// PageHandlers serves the landing page and the role dashboards. The dashboards
// sit behind Guard, which attaches the session.
type PageHandlers struct {
	Dashboards Dashboards
	Staff      StaffDirectory
	Renderer   *TemplateRenderer
	Logger     *slog.Logger
}

func (h *PageHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Home sends a signed-in visitor to their role's page and shows everyone else
// the landing page.
// GET /.
func (h *PageHandlers) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.NotFound(w, r)
		return
	}
	if sess, ok := GetSessionFromContext(r.Context()); ok {
		http.Redirect(w, r, domainauth.DestinationFor(sess.Role()), http.StatusSeeOther)
		return
	}
	renderPage(w, h.Renderer, http.StatusOK,
		NewTemplateData(r, PageMeta{Title: "Fake Hospital", CurrentPage: PageLanding}).Build())
}

// Patients shows the patient's care team and prescriptions.
// GET /patients.
func (h *PageHandlers) Patients(w http.ResponseWriter, r *http.Request) {
	sess, ok := GetSessionFromContext(r.Context())
	if !ok {
		deny(w, r, h.Renderer)
		return
	}
	view, err := h.Dashboards.Patient(r.Context(), *sess)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	renderPage(w, h.Renderer, http.StatusOK,
		NewTemplateData(r, PageMeta{Title: "My care", CurrentPage: PagePatients}).
			With("View", view).
			Build())
}

// Clinician lists a doctor's or nurse's assigned patients.
// GET /doctors, GET /nurses.
func (h *PageHandlers) Clinician(w http.ResponseWriter, r *http.Request) {
	sess, ok := GetSessionFromContext(r.Context())
	if !ok {
		deny(w, r, h.Renderer)
		return
	}
	view, err := h.Dashboards.Clinician(r.Context(), *sess)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	page := PageDoctors
	if sess.Role() == domainauth.RoleNurse {
		page = PageNurses
	}
	renderPage(w, h.Renderer, http.StatusOK,
		NewTemplateData(r, PageMeta{Title: "My patients", CurrentPage: page}).
			With("View", view).
			Build())
}

// Admin renders the staff provisioning form and the recent staff list.
// GET /admin.
func (h *PageHandlers) Admin(w http.ResponseWriter, r *http.Request) {
	renderPage(w, h.Renderer, http.StatusOK, adminData(r, h.recentStaff(r)).Build())
}

func (h *PageHandlers) recentStaff(r *http.Request) []care.StaffMember {
	if h.Staff == nil {
		return nil
	}
	staff, err := h.Staff.ListStaff(r.Context(), service.DefaultStaffListLimit)
	if err != nil {
		h.logger().WarnContext(r.Context(), "list staff failed", "error", err)
		return nil
	}
	return staff
}

func adminData(r *http.Request, staff []care.StaffMember) *TemplateDataBuilder {
	return NewTemplateData(r, PageMeta{Title: "Staff administration", CurrentPage: PageAdmin}).
		With("Staff", staff).
		With("Roles", domainauth.StaffRoles())
}

// NotFound renders the generic error page with a 404.
func (h *PageHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r) {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Message: "Not found."})
		return
	}
	renderPage(w, h.Renderer, http.StatusNotFound,
		NewTemplateData(r, PageMeta{Title: "Not found", CurrentPage: PageError}).
			WithError("The page you were looking for does not exist.").
			Build())
}

func (h *PageHandlers) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger().ErrorContext(r.Context(), "dashboard failed", "path", r.URL.Path, "error", err)
	renderPage(w, h.Renderer, http.StatusInternalServerError,
		NewTemplateData(r, PageMeta{Title: "Something went wrong", CurrentPage: PageError}).
			WithError("We couldn't load this page. Please try again.").
			Build())
}

// renderPage renders data with renderer, falling back to a bare status page
// when no renderer is configured or rendering fails.
func renderPage(w http.ResponseWriter, renderer *TemplateRenderer, status int, data map[string]any) {
	if renderer != nil {
		if err := renderer.Render(w, status, data); err == nil {
			return
		}
		status = http.StatusInternalServerError
	}
	http.Error(w, http.StatusText(status), status)
}
