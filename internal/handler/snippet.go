package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/snippet-shelf/internal/apperror"
	"github.com/sakif/snippet-shelf/internal/model"
	"github.com/sakif/snippet-shelf/internal/service"
	"github.com/sakif/snippet-shelf/internal/view"
)

// SnippetHandler serves the snippet API.
//
// Every route runs behind auth.OptionalAuth: the owner comes from the
// request context, and the service decides which backend that means.
// The handler never picks a store itself.
type SnippetHandler struct {
	snippets *service.SnippetService
	logger   *slog.Logger
}

// NewSnippetHandler creates a SnippetHandler.
func NewSnippetHandler(snippets *service.SnippetService, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{snippets: snippets, logger: logger}
}

// ListResponse is the body of GET /api/snippets.
type ListResponse struct {
	Items    []model.Snippet `json:"items"`
	Tags     []string        `json:"tags"` // vocabulary of the full list, not the filtered one
	Total    int             `json:"total"`
	Filtered int             `json:"filtered"`
}

// queryFrom reads ?type=&tag=&tag=&q= into a view.Query.
func queryFrom(r *http.Request) (view.Query, error) {
	params := r.URL.Query()
	kind, ok := view.ParseType(params.Get("type"))
	if !ok {
		return view.Query{}, apperror.ValidationFailed("type", "type must be all, code, sql or text")
	}
	return view.Query{Type: kind, Tags: params["tag"], Text: params.Get("q")}, nil
}

// load lists the caller's snippets and indexes them.
func (h *SnippetHandler) load(r *http.Request) (*view.Index, error) {
	all, err := h.snippets.List(r.Context(), ownerFrom(r))
	if err != nil {
		return nil, err
	}
	return view.NewIndex(all), nil
}

// HandleList returns the filtered, sorted list.
//
// HTTP: GET /api/snippets?type=sql&tag=db&tag=report&q=select
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q, err := queryFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	idx, err := h.load(r)
	if err != nil {
		writeError(w, err)
		return
	}

	items := idx.Apply(q)
	writeJSON(w, http.StatusOK, ListResponse{
		Items:    items,
		Tags:     idx.Tags(),
		Total:    idx.Len(),
		Filtered: len(items),
	})
}

// HandleGet returns one snippet.
//
// HTTP: GET /api/snippets/{id}
func (h *SnippetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	snippet, err := h.snippets.Get(r.Context(), ownerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// HandleCreate saves a new snippet.
//
// HTTP: POST /api/snippets
// BODY: {"kind":"sql","title":"users by id","body":"SELECT ... ${ID}","tags":["db"]}
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var draft model.Draft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeError(w, err)
		return
	}

	snippet, err := h.snippets.Create(r.Context(), ownerFrom(r), draft)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snippet)
}

// HandleUpdate applies a partial update. Absent fields are left alone.
//
// HTTP: PATCH /api/snippets/{id}
// BODY: {"title":"new title"}
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch model.Patch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	snippet, err := h.snippets.Update(r.Context(), ownerFrom(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// HandleDelete removes a snippet. Deleting a missing id is still 204.
//
// HTTP: DELETE /api/snippets/{id}
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.snippets.Delete(r.Context(), ownerFrom(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleTogglePin flips the pinned flag.
//
// HTTP: POST /api/snippets/{id}/pin → {"isPinned": true}
func (h *SnippetHandler) HandleTogglePin(w http.ResponseWriter, r *http.Request) {
	pinned, err := h.snippets.TogglePin(r.Context(), ownerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isPinned": pinned})
}

// UseRequest carries placeholder values for HandleUse.
type UseRequest struct {
	Values map[string]string `json:"values"`
}

// HandleUse records a use and returns the body ready to paste.
// An empty request body means "no values"; placeholders stay as ${NAME}.
//
// HTTP: POST /api/snippets/{id}/use
// BODY: {"values":{"TABLE":"users"}} → {"body":"SELECT * FROM users"}
func (h *SnippetHandler) HandleUse(w http.ResponseWriter, r *http.Request) {
	var req UseRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	body, err := h.snippets.RecordUse(r.Context(), ownerFrom(r), chi.URLParam(r, "id"), req.Values)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"body": body})
}

// HandleTags returns the tag vocabulary.
//
// HTTP: GET /api/tags
func (h *SnippetHandler) HandleTags(w http.ResponseWriter, r *http.Request) {
	idx, err := h.load(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idx.Tags())
}

// HandleStats returns usage statistics. The same filter parameters as
// HandleList decide the "filtered" count.
//
// HTTP: GET /api/stats?type=&tag=&q=
func (h *SnippetHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	q, err := queryFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	idx, err := h.load(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view.Summarize(idx.Snippets(), idx.Apply(q)))
}

// HandleKinds lists the snippet kinds and languages the editor offers.
//
// HTTP: GET /api/languages
func (h *SnippetHandler) HandleKinds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"kinds":     model.Kinds,
		"languages": model.Languages,
	})
}
