package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/export"
	applog "expensetracker/internal/log"
	"expensetracker/internal/view"
)

// User-facing notices.
const (
	noticeNotFound = "Expense not found"
	noticeNoData   = "No data to export"
	noticeFailure  = "Something went wrong. Please try again."
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().Text("ok").Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(r.Context()).WithComponent(applog.ComponentHTTP).
				WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err.Error())
			NewResponse().Status(http.StatusServiceUnavailable).Text("not ready").Write(w)
			return
		}
	}
	NewResponse().Text("ready").Write(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Has("q") {
		s.ctrl.SetQuery(q.Get("q"))
	}
	if q.Has("category") {
		s.ctrl.SetCategory(q.Get("category"))
	}
	s.renderPage(w, r, http.StatusOK, "")
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	in, err := parseExpenseForm(w, r)
	if err != nil {
		BadRequestError("Invalid form data").Write(w)
		return
	}

	outcome, err := s.ctrl.Submit(r.Context(), in)
	if err != nil {
		s.renderError(w, r, err, applog.OpCreate)
		return
	}
	applog.FromContext(r.Context()).WithComponent(applog.ComponentHTTP).
		InfoContext(r.Context(), "Expense saved", "outcome", outcome.String())
	redirectHome(w)
}

func (s *Server) handleBeginEdit(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.renderPage(w, r, http.StatusNotFound, noticeNotFound)
		return
	}
	if err := s.ctrl.BeginEdit(r.Context(), id); err != nil {
		s.renderError(w, r, err, applog.OpEdit)
		return
	}
	redirectHome(w)
}

func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	s.ctrl.CancelEdit()
	redirectHome(w)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.renderPage(w, r, http.StatusNotFound, noticeNotFound)
		return
	}
	if err := s.ctrl.Delete(r.Context(), id); err != nil {
		s.renderError(w, r, err, applog.OpDelete)
		return
	}
	redirectHome(w)
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.ClearAll(r.Context()); err != nil {
		s.renderError(w, r, err, applog.OpClear)
		return
	}
	redirectHome(w)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	data, err := s.ctrl.ExportCSV(r.Context())
	if err != nil {
		s.renderError(w, r, err, applog.OpExport)
		return
	}
	NewResponse().Attachment(export.Filename, export.ContentType, data).Write(w)
}

// renderError maps the error taxonomy onto a status and notice. Anything
// unexpected is logged and shown as a generic failure.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case core.IsValidationError(err):
		s.renderPage(w, r, http.StatusUnprocessableEntity, core.ValidationMessage)
	case errors.Is(err, core.ErrNotFound):
		s.renderPage(w, r, http.StatusNotFound, noticeNotFound)
	case errors.Is(err, core.ErrEmpty):
		s.renderPage(w, r, http.StatusUnprocessableEntity, noticeNoData)
	default:
		applog.LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, op, nil)
		s.renderPage(w, r, http.StatusInternalServerError, noticeFailure)
	}
}

// renderPage executes the page template into a buffer first so a template
// failure never produces a half-written page.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, notice string) {
	records, st := s.ctrl.Snapshot()
	model := view.Render(records, st, view.Options{CurrencySymbol: s.currency, Notice: notice})

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", model); err != nil {
		applog.LogError(r.Context(), "Index template execution failed", err,
			applog.ComponentTemplate, applog.OpRender, nil)
		InternalServerError("template error").Write(w)
		return
	}
	NewResponse().Status(status).HTML(buf.Bytes()).Write(w)
}

func redirectHome(w http.ResponseWriter) {
	NewResponse().SeeOther("/").Write(w)
}
