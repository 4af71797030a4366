// Package portal embeds the web frontend.
package portal

import "embed"

// StaticFS holds CSS and JS under frontend/static.
//
//go:embed all:frontend/static
var StaticFS embed.FS

// TemplateFS holds the layout and page templates under frontend/templates.
//
//go:embed all:frontend/templates
var TemplateFS embed.FS
