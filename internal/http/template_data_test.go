package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	domainauth "github.com/fakehospital/portal/internal/domain/auth"
	"github.com/stretchr/testify/assert"
)

func TestNewTemplateData_Defaults(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/sign-in", nil)
	data := NewTemplateData(r, PageMeta{Title: "Sign in", CurrentPage: PageSignIn}).Build()

	assert.Equal(t, "Sign in", data["Title"])
	assert.Equal(t, PageSignIn, data["CurrentPage"])
	assert.Equal(t, SupportEmail, data["SupportEmail"])
	assert.Equal(t, map[string]string{}, data["Form"])
	assert.NotContains(t, data, "Session")
	assert.NotContains(t, data, "Error")
}

func TestTemplateDataBuilder_SessionAndWithoutSession(t *testing.T) {
	sess := sessionFor(domainauth.RoleDoctor)
	r := httptest.NewRequest(http.MethodGet, "/doctors", nil)
	r = r.WithContext(SetSessionInContext(r.Context(), sess))

	b := NewTemplateData(r, PageMeta{Title: "x", CurrentPage: PageDoctors})
	data := b.Build()
	assert.Same(t, sess, data["Session"])
	assert.Equal(t, sess.User, data["User"])

	data = b.WithoutSession().Build()
	assert.NotContains(t, data, "Session")
	assert.NotContains(t, data, "User")
}

func TestTemplateDataBuilder_Errors(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/sign-up", nil)
	data := NewTemplateData(r, PageMeta{CurrentPage: PageSignUp}).
		WithError("").
		WithFieldErrors(nil).
		Build()
	assert.NotContains(t, data, "Error")
	assert.Equal(t, map[string]string{}, data["Errors"])

	data = NewTemplateData(r, PageMeta{CurrentPage: PageSignUp}).
		WithError(msgFixBelow).
		WithFieldErrors(map[string]string{"email": "Please enter a valid email address"}).
		WithForm(map[string]string{"email": "nope"}).
		With("Notice", "hello").
		Build()
	assert.Equal(t, true, data["Error"])
	assert.Equal(t, msgFixBelow, data["ErrorMessage"])
	assert.Equal(t, "Please enter a valid email address", data["Errors"].(map[string]string)["email"])
	assert.Equal(t, "nope", data["Form"].(map[string]string)["email"])
	assert.Equal(t, "hello", data["Notice"])
}

func TestContentTemplateFor(t *testing.T) {
	assert.Equal(t, "clinician-content", ContentTemplateFor(PageDoctors))
	assert.Equal(t, "clinician-content", ContentTemplateFor(PageNurses))
	assert.Equal(t, "forbidden-content", ContentTemplateFor(PageForbidden))
	assert.Equal(t, "landing-content", ContentTemplateFor("unknown"))
}
