package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"billtracker/internal/core"
	"billtracker/internal/export"
	"billtracker/internal/log"
)

var errNoRenderer = errors.New("report renderer unavailable")

// handleExportCSV sends the bill export as a download. The document is
// built in memory first so a failure can still become a clean 500.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	n, err := s.svc.WriteCSV(&buf)
	if err != nil {
		s.fail(w, r, log.OpExportCSV, err, n, nil)
		return
	}
	download(buf.Bytes(), "text/csv; charset=utf-8", export.Filename(s.now(), "csv")).Notify(n).Write(w)
	log.FromContext(r.Context()).DebugContext(r.Context(), "CSV exported",
		log.FieldOperation, log.OpExportCSV,
		log.FieldCount, len(s.svc.Store().Bills()))
}

func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	if s.renderer == nil {
		s.fail(w, r, log.OpExportReport, errNoRenderer, core.Notification{
			Title:    "Error",
			Message:  "Report export failed.",
			Severity: core.SeverityDanger,
		}, nil)
		return
	}
	var buf bytes.Buffer
	n, err := s.svc.RenderReport(&buf, s.renderer)
	if err != nil {
		s.fail(w, r, log.OpExportReport, err, n, nil)
		return
	}
	download(buf.Bytes(), s.renderer.ContentType(), export.Filename(s.now(), s.renderer.Extension())).Notify(n).Write(w)
}

// handleReportJSON returns the structured report for clients that lay it
// out themselves.
func (s *Server) handleReportJSON(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.svc.Store().ExportReport()).Write(w)
}

func download(body []byte, contentType, filename string) *ResponseBuilder {
	return NewResponse().
		Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename)).
		Header("Cache-Control", "no-store").
		Raw(contentType, body)
}
