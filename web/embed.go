// Package web carries the static layouts compiled into the binaries.
package web

import "embed"

// ReportTemplate is the path of the printable report inside Templates.
const ReportTemplate = "templates/report.html"

//go:embed templates/*.html
var Templates embed.FS
