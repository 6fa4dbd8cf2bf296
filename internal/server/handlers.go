package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"onionscope/pkg/errors"
	"onionscope/pkg/observability"
	"onionscope/pkg/onion"
	"onionscope/pkg/store"
)

// errorBody is the JSON error envelope. The code mirrors the pkg/errors
// code so remote clients can rebuild typed errors.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var body errorBody
	body.Error.Code = string(errors.GetCode(err))
	body.Error.Message = errors.UserMessage(err)
	writeJSON(w, statusFor(errors.GetCode(err)), body)
}

// statusFor maps error codes to HTTP statuses.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidLayer, errors.ErrCodeInvalidFocus,
		errors.ErrCodeInvalidPath, errors.ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeModuleNotFound, errors.ErrCodeFileNotFound,
		errors.ErrCodeViewNotFound:
		return http.StatusNotFound
	case errors.ErrCodeNetwork, errors.ErrCodeFetchFailed:
		return http.StatusBadGateway
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// =============================================================================
// Analysis Endpoints
// =============================================================================

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	payload, err := s.fetchLayer(r, onion.LayerProjectIntent, "")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleLayer(w http.ResponseWriter, r *http.Request) {
	layer, err := onion.ParseLayer(chi.URLParam(r, "layer"))
	if err != nil {
		writeError(w, err)
		return
	}
	payload, err := s.fetchLayer(r, layer, r.URL.Query().Get("focus"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) fetchLayer(r *http.Request, layer onion.Layer, focus string) (onion.Payload, error) {
	key := onion.Key{Layer: layer, FocusID: focus}
	start := time.Now()
	observability.Fetch().OnFetchStart(r.Context(), key.String())

	payload, err := s.provider.FetchLayerData(r.Context(), layer, focus)
	observability.Fetch().OnFetchComplete(r.Context(), key.String(), time.Since(start), err)
	return payload, err
}

func (s *Server) handleModuleFiles(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	files, err := s.provider.FetchModuleFiles(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleAnnotation(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidPath, "path query parameter is required"))
		return
	}
	ann, err := s.provider.FetchFileAnnotation(r.Context(), path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ann)
}

// =============================================================================
// View Endpoints
// =============================================================================

func (s *Server) handleListViews(w http.ResponseWriter, r *http.Request) {
	views, err := s.store.List(r.Context(), r.URL.Query().Get("project"))
	if err != nil {
		writeError(w, err)
		return
	}
	if views == nil {
		views = []store.View{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	v, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleCreateView(w http.ResponseWriter, r *http.Request) {
	v, err := decodeView(r.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	v.ID = store.NewID()
	now := time.Now().UTC()
	v.CreatedAt = now
	v.UpdatedAt = now
	if v.Project == "" {
		v.Project = s.project
	}

	if err := s.store.Put(r.Context(), v); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleUpdateView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	v, err := decodeView(r.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	v.ID = existing.ID
	v.CreatedAt = existing.CreatedAt
	v.UpdatedAt = time.Now().UTC()
	if v.Project == "" {
		v.Project = existing.Project
	}

	if err := s.store.Put(r.Context(), v); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleDeleteView(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeView(body io.Reader) (store.View, error) {
	var v store.View
	if err := json.NewDecoder(body).Decode(&v); err != nil {
		return store.View{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "malformed view body")
	}
	if v.Name == "" {
		return store.View{}, errors.New(errors.ErrCodeInvalidInput, "view name is required")
	}
	if !v.Layer.Valid() {
		return store.View{}, errors.New(errors.ErrCodeInvalidLayer, "view layer is invalid")
	}
	return v, nil
}
