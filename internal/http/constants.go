package httpx

// CurrentPage identifiers used by templates and navigation.
const (
	PageLanding   = "landing"
	PageSignIn    = "sign-in"
	PageSignUp    = "sign-up"
	PagePatients  = "patients"
	PageDoctors   = "doctors"
	PageNurses    = "nurses"
	PageAdmin     = "admin"
	PageForbidden = "forbidden"
	PageError     = "error"
)

// Cookie names.
const (
	SessionCookieName = "session_token"
	oauthStateCookie  = "oauth_state"
	oauthNonceCookie  = "oauth_nonce"
)

// SupportEmail is shown on the access-denied page.
const SupportEmail = "support@fakehospital.com"

// Template paths used for loading templates in tests and dev mode.
const (
	TemplatePathFromRoot = "frontend/templates"
	TemplatePathFromTest = "../../frontend/templates"
	StaticPathFromRoot   = "frontend/static"
)

//nolint:gochecknoglobals // static read-only lookup for templates
var contentTemplates = map[string]string{
	PageLanding:   "landing-content",
	PageSignIn:    "sign-in-content",
	PageSignUp:    "sign-up-content",
	PagePatients:  "patients-content",
	PageDoctors:   "clinician-content",
	PageNurses:    "clinician-content",
	PageAdmin:     "admin-content",
	PageForbidden: "forbidden-content",
	PageError:     "error-content",
}

// ContentTemplateFor returns the content template for the given CurrentPage.
// Falls back to landing-content for unknown pages.
func ContentTemplateFor(currentPage string) string {
	if name, ok := contentTemplates[currentPage]; ok {
		return name
	}
	return "landing-content"
}
