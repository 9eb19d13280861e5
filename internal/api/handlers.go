package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/amsel/raido/internal/apperr"
	"github.com/amsel/raido/internal/catalog"
	"github.com/amsel/raido/internal/models"
	"github.com/amsel/raido/internal/nodeservice"
)

// defaultMaxUploadBytes caps multipart uploads when no limit is configured.
const defaultMaxUploadBytes = 50 << 20

// Handler holds API route handlers.
type Handler struct {
	svc       *nodeservice.Service
	db        *catalog.DB
	maxUpload int64
}

// NewHandler creates a new Handler. maxUpload bounds upload body size in
// bytes; zero selects the default of 50 MB.
func NewHandler(svc *nodeservice.Service, db *catalog.DB, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	return &Handler{svc: svc, db: db, maxUpload: maxUpload}
}

// statusFor maps service errors to HTTP statuses. Unexpected errors
// become a generic 500 so internals never leak to the dashboard.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrInvalid):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrAlreadyExists):
		return http.StatusConflict, err.Error()
	}
	return http.StatusInternalServerError, "internal error"
}

func (h *Handler) serviceError(w http.ResponseWriter, op string, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(op+" failed", slog.String("error", err.Error()))
	}
	fail(w, status, msg)
}

// ListParentNodes handles GET /nodes/parent-nodes.
func (h *Handler) ListParentNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.svc.ParentNodes(r.Context())
	if err != nil {
		h.serviceError(w, "list parent nodes", err)
		return
	}
	respond(w, http.StatusOK, NodeListResponse{Nodes: nonNil(nodes)})
}

// GetNode handles GET /nodes/{id}.
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	it, err := h.svc.Node(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.serviceError(w, "get node", err)
		return
	}
	respond(w, http.StatusOK, it)
}

// ListChildren handles GET /nodes/{id}/children.
func (h *Handler) ListChildren(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.svc.Node(r.Context(), id); err != nil {
		h.serviceError(w, "resolve node", err)
		return
	}
	nodes, err := h.svc.Children(r.Context(), id)
	if err != nil {
		h.serviceError(w, "list children", err)
		return
	}
	respond(w, http.StatusOK, NodeListResponse{Nodes: nonNil(nodes)})
}

// CreateNode handles POST /nodes.
func (h *Handler) CreateNode(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	it, err := h.svc.CreateFolder(r.Context(), req.Name, models.FolderKind(req.Type), req.ParentID)
	if err != nil {
		h.serviceError(w, "create node", err)
		return
	}
	respond(w, http.StatusCreated, it)
}

// DeleteNode handles DELETE /nodes/{id}.
func (h *Handler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.serviceError(w, "delete node", err)
		return
	}
	respond(w, http.StatusOK, nil)
}

// RenameNode handles PATCH /nodes/{id}/rename.
func (h *Handler) RenameNode(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req RenameNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.svc.Rename(r.Context(), id, req.Name); err != nil {
		h.serviceError(w, "rename node", err)
		return
	}
	respond(w, http.StatusOK, nil)
}

// SetNodePosition handles PATCH /nodes/{id}/position.
func (h *Handler) SetNodePosition(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req struct {
		Position int `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.svc.SetPosition(r.Context(), chi.URLParam(r, "id"), req.Position); err != nil {
		h.serviceError(w, "set position", err)
		return
	}
	respond(w, http.StatusOK, nil)
}

// SearchNodes handles GET /nodes/search?query=.
func (h *Handler) SearchNodes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		fail(w, http.StatusBadRequest, "query parameter 'query' is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), query, limit)
	if err != nil {
		h.serviceError(w, "search nodes", err)
		return
	}
	if results == nil {
		results = []catalog.SearchResult{}
	}
	respond(w, http.StatusOK, map[string]any{"results": results})
}

// NodeStats handles GET /nodes/stats.
func (h *Handler) NodeStats(w http.ResponseWriter, r *http.Request) {
	imageCount, err := h.db.ImageCount()
	if err != nil {
		h.serviceError(w, "node stats", err)
		return
	}
	respond(w, http.StatusOK, map[string]int{"image_count": imageCount})
}

// RepoFiles handles GET /repo/{id}/files.
func (h *Handler) RepoFiles(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.svc.Node(r.Context(), id); err != nil {
		h.serviceError(w, "resolve repo", err)
		return
	}
	files, err := h.svc.RepoFiles(r.Context(), id)
	if err != nil {
		h.serviceError(w, "list repo files", err)
		return
	}
	respond(w, http.StatusOK, NodeListResponse{Nodes: nonNil(files)})
}

// Upload handles POST /repo/{id}/upload (multipart/form-data: file,
// name, position, force_position, duration). A position conflict is a
// 409 that the dashboard may retry with force_position=true.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		fail(w, http.StatusBadRequest, "file too large or invalid multipart")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		fail(w, http.StatusBadRequest, "missing 'file' field in multipart form")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		fail(w, http.StatusBadRequest, "failed to read file")
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}
	mime := header.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
	}

	req := nodeservice.UploadRequest{
		Name:          name,
		MIME:          mime,
		Data:          data,
		ForcePosition: r.FormValue("force_position") == "true",
	}
	if v := r.FormValue("position"); v != "" {
		pos, err := strconv.Atoi(v)
		if err != nil {
			fail(w, http.StatusBadRequest, "position must be an integer")
			return
		}
		req.Position = &pos
	}
	if v := r.FormValue("duration"); v != "" {
		req.DurationSeconds, _ = strconv.Atoi(v)
	}

	it, err := h.svc.UploadFile(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.serviceError(w, "upload file", err)
		return
	}
	respond(w, http.StatusCreated, it)
}

// CreateCode handles POST /codes.
func (h *Handler) CreateCode(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	code := models.AccessCode{
		ID:         uuid.NewString(),
		Code:       req.Code,
		Label:      req.Label,
		ValidFrom:  req.ValidFrom,
		ValidUntil: req.ValidUntil,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.db.InsertCode(code); err != nil {
		h.serviceError(w, "create code", err)
		return
	}
	respond(w, http.StatusCreated, code)
}

// ListCodes handles GET /codes.
func (h *Handler) ListCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.db.ListCodes()
	if err != nil {
		h.serviceError(w, "list codes", err)
		return
	}
	if codes == nil {
		codes = []models.AccessCode{}
	}
	respond(w, http.StatusOK, map[string]any{"codes": codes})
}

// DeleteCode handles DELETE /codes/{id}.
func (h *Handler) DeleteCode(w http.ResponseWriter, r *http.Request) {
	if err := h.db.DeleteCode(chi.URLParam(r, "id")); err != nil {
		h.serviceError(w, "delete code", err)
		return
	}
	respond(w, http.StatusOK, nil)
}

// ValidateCode handles GET /codes/{code}/validate.
func (h *Handler) ValidateCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	valid, err := h.db.ValidateCode(code, time.Now())
	if err != nil {
		h.serviceError(w, "validate code", err)
		return
	}
	respond(w, http.StatusOK, CodeValidationResponse{Code: code, Valid: valid})
}

func nonNil(items []models.Item) []models.Item {
	if items == nil {
		return []models.Item{}
	}
	return items
}
