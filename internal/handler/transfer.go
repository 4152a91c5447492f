package handler

import (
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/sakif/snippet-shelf/internal/apperror"
	"github.com/sakif/snippet-shelf/internal/transfer"
	"github.com/sakif/snippet-shelf/internal/view"
)

// HandleExport downloads the caller's whole collection.
//
// HTTP: GET /api/export?format=json|csv
func (h *SnippetHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	format, err := transfer.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, apperror.ValidationFailed("format", err.Error()))
		return
	}

	all, err := h.snippets.List(r.Context(), ownerFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}

	name := fmt.Sprintf("snippets-%s.%s", time.Now().Format("2006-01-02"), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)

	if err := transfer.Write(w, format, view.Sort(all)); err != nil {
		// Headers are gone; all we can do is log.
		h.logger.Error("export failed", slog.String("error", err.Error()))
	}
}

// HandleImport reads a JSON or CSV file from the request body and creates
// every valid entry. The format comes from ?format=, else from the
// Content-Type.
//
// HTTP: POST /api/import?format=csv → {"imported": 3, "failures": [...]}
func (h *SnippetHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("format")
	if raw == "" {
		if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil && mt == "text/csv" {
			raw = string(transfer.FormatCSV)
		}
	}
	format, err := transfer.ParseFormat(raw)
	if err != nil {
		writeError(w, apperror.ValidationFailed("format", err.Error()))
		return
	}

	drafts, err := transfer.Read(http.MaxBytesReader(w, r.Body, maxImportBytes), format)
	if err != nil {
		writeError(w, apperror.ValidationFailed("body", err.Error()))
		return
	}

	report := h.snippets.Import(r.Context(), ownerFrom(r), drafts)
	writeJSON(w, http.StatusOK, report)
}
