package httpx

import (
	"net/http"
)

// PageMeta contains page metadata for rendering.
type PageMeta struct {
	Title       string
	CurrentPage string
}

// TemplateDataBuilder provides a fluent API for building template data maps.
type TemplateDataBuilder struct {
	data map[string]any
}

// NewTemplateData creates a builder seeded with what every page needs: title,
// current page, CSRF token, support contact, and the session if one is attached.
func NewTemplateData(r *http.Request, meta PageMeta) *TemplateDataBuilder {
	data := map[string]any{
		"Title":        meta.Title,
		"CurrentPage":  meta.CurrentPage,
		"CSRFToken":    CSRFToken(r),
		"SupportEmail": SupportEmail,
		"Form":         map[string]string{},
		"Errors":       map[string]string{},
	}
	if sess, ok := GetSessionFromContext(r.Context()); ok {
		data["Session"] = sess
		data["User"] = sess.User
	}
	return &TemplateDataBuilder{data: data}
}

// WithoutSession drops session-derived fields, so the page looks the same to
// every viewer.
func (b *TemplateDataBuilder) WithoutSession() *TemplateDataBuilder {
	delete(b.data, "Session")
	delete(b.data, "User")
	return b
}

// WithError sets a general error message.
func (b *TemplateDataBuilder) WithError(msg string) *TemplateDataBuilder {
	if msg != "" {
		b.data["Error"] = true
		b.data["ErrorMessage"] = msg
	}
	return b
}

// WithFieldErrors adds field-level validation errors.
func (b *TemplateDataBuilder) WithFieldErrors(errs map[string]string) *TemplateDataBuilder {
	if len(errs) > 0 {
		b.data["Errors"] = errs
	}
	return b
}

// WithForm echoes submitted values back into the form. Secrets are never echoed.
func (b *TemplateDataBuilder) WithForm(values map[string]string) *TemplateDataBuilder {
	if values != nil {
		b.data["Form"] = values
	}
	return b
}

// With adds a custom field to the template data.
func (b *TemplateDataBuilder) With(key string, value any) *TemplateDataBuilder {
	b.data[key] = value
	return b
}

// Build returns the final template data map.
func (b *TemplateDataBuilder) Build() map[string]any {
	return b.data
}
