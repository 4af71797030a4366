package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	"github.com/fakehospital/portal/internal/domain/care"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHome_LandingForVisitors(t *testing.T) {
	p := newPortal(t)
	w := p.do(httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Your care, in one place")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestHome_RedirectsByRole(t *testing.T) {
	p := newPortal(t)
	for _, role := range domainauth.AllRoles() {
		email := string(role) + "@fakehospital.com"
		p.addUser(t, email, role, "pass1234")
		token := p.signIn(t, email, "pass1234")

		w := p.do(withSession(httptest.NewRequest(http.MethodGet, "/", nil), token))
		assert.Equal(t, http.StatusSeeOther, w.Code, role)
		assert.Equal(t, domainauth.DestinationFor(role), w.Header().Get("Location"), role)
	}
}

func TestNotFound_HTMLAndAPI(t *testing.T) {
	p := newPortal(t)

	w := p.do(httptest.NewRequest(http.MethodGet, "/no-such-page", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "does not exist")

	w = p.do(httptest.NewRequest(http.MethodGet, "/api/nothing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not_found","message":"Not found."}`, w.Body.String())
}

func TestPatientsPage_ShowsCareTeamAndPrescriptions(t *testing.T) {
	p := newPortal(t)
	ident := p.addUser(t, "pat@example.com", domainauth.RolePatient, "pass1234")
	rec, err := p.directory.GetRoleRecord(t.Context(), domainauth.RolePatient, ident.ID)
	require.NoError(t, err)
	p.directory.Teams[rec.ID] = care.CareTeam{Doctor: &care.Clinician{RecordID: 3, Name: "Dana Reyes", Email: "dana@fakehospital.com"}}
	p.directory.Prescriptions[rec.ID] = []care.Prescription{
		{ID: 1, Medication: "Amoxicillin", Dosage: "500mg", PrescribedBy: "Dana Reyes", CreatedAt: time.Now()},
	}
	token := p.signIn(t, "pat@example.com", "pass1234")

	w := p.do(withSession(httptest.NewRequest(http.MethodGet, "/patients", nil), token))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Dana Reyes")
	assert.Contains(t, body, "Amoxicillin")
	assert.Contains(t, body, "Not yet assigned", "nurse slot is empty")
}

func TestClinicianPages(t *testing.T) {
	p := newPortal(t)
	ident := p.addUser(t, "nora@fakehospital.com", domainauth.RoleNurse, "pass1234")
	rec, err := p.directory.GetRoleRecord(t.Context(), domainauth.RoleNurse, ident.ID)
	require.NoError(t, err)
	p.directory.Patients[rec.ID] = []care.AssignedPatient{
		{PatientID: 9, Name: "Pat Lee", Email: "pat@example.com", Since: time.Now()},
		{PatientID: 10, Name: "Sam Roe", Email: "sam@example.com", Since: time.Now()},
	}
	token := p.signIn(t, "nora@fakehospital.com", "pass1234")

	w := p.do(withSession(httptest.NewRequest(http.MethodGet, "/nurses", nil), token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "My Patients (2)")
	assert.Contains(t, w.Body.String(), "Sam Roe")

	doctorsPage := p.do(withSession(httptest.NewRequest(http.MethodGet, "/doctors", nil), token))
	assert.Equal(t, http.StatusForbidden, doctorsPage.Code, "a nurse cannot open the doctors page")
}

func TestClinicianPage_MissingRecordNotice(t *testing.T) {
	p := newPortal(t)
	p.identities.Directory = nil
	p.addUser(t, "dana@fakehospital.com", domainauth.RoleDoctor, "pass1234")
	token := p.signIn(t, "dana@fakehospital.com", "pass1234")

	w := p.do(withSession(httptest.NewRequest(http.MethodGet, "/doctors", nil), token))
	require.Equal(t, http.StatusOK, w.Code, "a missing role record does not block the session")
	assert.Contains(t, w.Body.String(), "still being set up")
}

func TestDashboard_DirectoryErrorIs500(t *testing.T) {
	p := newPortal(t)
	p.addUser(t, "dana@fakehospital.com", domainauth.RoleDoctor, "pass1234")
	token := p.signIn(t, "dana@fakehospital.com", "pass1234")
	// Resolve once so the session is cached before the directory fails.
	require.Equal(t, http.StatusOK, p.do(withSession(httptest.NewRequest(http.MethodGet, "/doctors", nil), token)).Code)
	p.directory.Err = errors.New("pq: connection reset")

	w := p.do(withSession(httptest.NewRequest(http.MethodGet, "/doctors", nil), token))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestAdminPage_ListsStaff(t *testing.T) {
	p := newPortal(t)
	p.addUser(t, "ada@fakehospital.com", domainauth.RoleAdmin, "pass1234")
	p.addUser(t, "dana@fakehospital.com", domainauth.RoleDoctor, "pass1234")
	p.addUser(t, "pat@example.com", domainauth.RolePatient, "pass1234")
	token := p.signIn(t, "ada@fakehospital.com", "pass1234")

	w := p.do(withSession(httptest.NewRequest(http.MethodGet, "/admin", nil), token))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Add a staff member")
	assert.Contains(t, body, "dana@fakehospital.com")
	assert.NotContains(t, body, "pat@example.com", "patients are not staff")
}

func TestRenderPage_FallsBackWithoutRenderer(t *testing.T) {
	w := httptest.NewRecorder()
	renderPage(w, nil, http.StatusNotFound, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Not Found")
}
