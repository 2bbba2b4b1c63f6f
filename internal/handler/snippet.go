package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snipvault/internal/auth"
	"github.com/sakif/snipvault/internal/model"
	"github.com/sakif/snipvault/internal/service"
)

// SnippetHandler exposes the aggregation engine over HTTP. These routes,
// plus TagHandler's, are the only path between the UI and the store.
type SnippetHandler struct {
	snippets *service.SnippetService
	logger   *slog.Logger
}

func NewSnippetHandler(snippets *service.SnippetService, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{snippets: snippets, logger: logger}
}

// createSnippetRequest mirrors service.CreateSnippetInput on the wire.
type createSnippetRequest struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Description *string  `json:"description"`
	Language    string   `json:"language"`
	TagIDs      []string `json:"tagIds"`
}

// updateSnippetRequest uses pointers throughout so a field that is absent
// from the JSON body stays nil and is never written. TagIDs being a slice
// pointer keeps "tagIds omitted" distinct from "tagIds: []".
type updateSnippetRequest struct {
	Title       *string   `json:"title"`
	Content     *string   `json:"content"`
	Description *string   `json:"description"`
	Language    *string   `json:"language"`
	TagIDs      *[]string `json:"tagIds"`
}

type favoriteRequest struct {
	IsFavorite bool `json:"isFavorite"`
}

// HandleList serves GET /api/snippets?view=&search=&language=&tags=.
// tags is a comma-separated id list combined with AND semantics.
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	view := model.SnippetView(r.URL.Query().Get("view"))
	if view == "" {
		view = model.ViewAll
	}

	filters := model.FilterState{
		Search:   r.URL.Query().Get("search"),
		Language: r.URL.Query().Get("language"),
	}
	// Stray commas must not become empty tag ids; under AND semantics an
	// empty id matches nothing and would blank the whole listing.
	for _, id := range strings.Split(r.URL.Query().Get("tags"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			filters.TagIDs = append(filters.TagIDs, id)
		}
	}

	snippets, err := h.snippets.List(r.Context(), view, filters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippets)
}

// HandleGet serves GET /api/snippets/{id}.
func (h *SnippetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	snippet, err := h.snippets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// HandleCreate serves POST /api/snippets. The owner comes from the
// authentication collaborator, never from the request body.
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSnippetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid snippet JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	owner, _ := auth.UserIDFromContext(r.Context())
	snippet, err := h.snippets.Create(r.Context(), owner, service.CreateSnippetInput{
		Title:       req.Title,
		Content:     req.Content,
		Description: req.Description,
		Language:    req.Language,
		TagIDs:      req.TagIDs,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": snippet.ID})
}

// HandleUpdate serves PATCH /api/snippets/{id}.
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateSnippetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid snippet JSON", slog.String("error", err.Error()))
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	err := h.snippets.Update(r.Context(), service.UpdateSnippetInput{
		ID:          chi.URLParam(r, "id"),
		Title:       req.Title,
		Content:     req.Content,
		Description: req.Description,
		Language:    req.Language,
		TagIDs:      req.TagIDs,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleTrash serves POST /api/snippets/{id}/trash (soft delete).
func (h *SnippetHandler) HandleTrash(w http.ResponseWriter, r *http.Request) {
	if err := h.snippets.SoftDelete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRestore serves POST /api/snippets/{id}/restore.
func (h *SnippetHandler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	if err := h.snippets.Restore(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete serves DELETE /api/snippets/{id} (permanent).
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.snippets.PermanentDelete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleFavorite serves PUT /api/snippets/{id}/favorite. The body carries
// the target value; the client computes it from the state it last saw.
func (h *SnippetHandler) HandleFavorite(w http.ResponseWriter, r *http.Request) {
	var req favoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if err := h.snippets.ToggleFavorite(r.Context(), chi.URLParam(r, "id"), req.IsFavorite); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLanguages serves GET /api/languages: the closed language enum with
// display names, for the editor's language picker.
func (h *SnippetHandler) HandleLanguages(w http.ResponseWriter, r *http.Request) {
	type language struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	languages := make([]language, 0, len(model.Languages))
	for _, code := range model.Languages {
		languages = append(languages, language{Code: code, Name: model.LanguageDisplayNames[code]})
	}
	writeJSON(w, http.StatusOK, languages)
}
