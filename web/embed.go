// Package web embeds the page template and static assets.
package web

import "embed"

// TemplatesFS holds the server-side page templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the CSS and JavaScript served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
