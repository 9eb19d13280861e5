package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amsel/raido/internal/catalog"
	"github.com/amsel/raido/internal/nodeservice"
)

// RouterOptions configures the API router.
type RouterOptions struct {
	// AuthEnabled turns on Bearer token enforcement with Token.
	AuthEnabled bool
	Token       string
	// SSE, if non-nil, is mounted at GET /events inside the auth group.
	SSE http.Handler
	// MaxUploadBytes bounds multipart upload bodies; zero means 50 MB.
	MaxUploadBytes int64
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *nodeservice.Service, db *catalog.DB, opts RouterOptions) chi.Router {
	h := NewHandler(svc, db, opts.MaxUploadBytes)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(opts.AuthEnabled, opts.Token))

	// Content tree.
	r.Get("/nodes/parent-nodes", h.ListParentNodes)
	r.Get("/nodes/search", h.SearchNodes)
	r.Get("/nodes/stats", h.NodeStats)
	r.Get("/nodes/{id}", h.GetNode)
	r.Get("/nodes/{id}/children", h.ListChildren)
	r.Post("/nodes", h.CreateNode)
	r.Delete("/nodes/{id}", h.DeleteNode)
	r.Patch("/nodes/{id}/rename", h.RenameNode)
	r.Patch("/nodes/{id}/position", h.SetNodePosition)

	// File repositories.
	r.Get("/repo/{id}/files", h.RepoFiles)
	r.Post("/repo/{id}/upload", h.Upload)

	// Access codes.
	r.Post("/codes", h.CreateCode)
	r.Get("/codes", h.ListCodes)
	r.Delete("/codes/{id}", h.DeleteCode)
	r.Get("/codes/{code}/validate", h.ValidateCode)

	// SSE endpoint (protected by the same auth middleware).
	if opts.SSE != nil {
		r.Get("/events", opts.SSE.ServeHTTP)
	}

	return r
}
