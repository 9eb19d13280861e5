// Package client implements the navigator catalog over the Raido REST
// API. It is the seam the browser dashboard sits on: every request
// carries the bearer token and every response follows the uniform
// {status, data?, message?} envelope.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amsel/raido/internal/apperr"
	"github.com/amsel/raido/internal/models"
	"github.com/amsel/raido/internal/navigator"
)

// Client talks to the Raido admin API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ navigator.Catalog = (*Client)(nil)

// New creates a client for the given base URL (e.g. "http://host:8080/api").
// token may be empty when the server runs with auth disabled.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// do issues the request and decodes the envelope, mapping error
// statuses to the shared sentinels.
func (c *Client) do(ctx context.Context, method, path string, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("client: %s %s: malformed response: %w", method, path, err)
	}

	if env.Status != "success" {
		msg := env.Message
		if msg == "" {
			msg = resp.Status
		}
		switch resp.StatusCode {
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %s", apperr.ErrInvalid, msg)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", apperr.ErrNotFound, msg)
		case http.StatusConflict:
			return fmt.Errorf("%w: %s", apperr.ErrConflict, msg)
		}
		return fmt.Errorf("client: %s %s: %s", method, path, msg)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("client: %s %s: decode data: %w", method, path, err)
		}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, "", nil, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("client: encode request: %w", err)
	}
	return c.do(ctx, method, path, "application/json", bytes.NewReader(payload), out)
}

type nodeList struct {
	Nodes []models.Item `json:"nodes"`
}

// Node fetches a single node by id.
func (c *Client) Node(ctx context.Context, id string) (*models.Item, error) {
	if id == models.RootID {
		return &models.Item{ID: models.RootID, Name: models.RootName, Kind: models.KindFolder}, nil
	}
	var it models.Item
	if err := c.getJSON(ctx, "/nodes/"+url.PathEscape(id), &it); err != nil {
		return nil, err
	}
	return &it, nil
}

// Children lists the direct children of a folder. The root sentinel
// maps to the parent-nodes seed endpoint.
func (c *Client) Children(ctx context.Context, id string) ([]models.Item, error) {
	path := "/nodes/" + url.PathEscape(id) + "/children"
	if id == models.RootID {
		path = "/nodes/parent-nodes"
	}
	var list nodeList
	if err := c.getJSON(ctx, path, &list); err != nil {
		return nil, err
	}
	return list.Nodes, nil
}

// CreateFolder creates a folder node.
func (c *Client) CreateFolder(ctx context.Context, name string, kind models.FolderKind, parentID string) (*models.Item, error) {
	req := map[string]string{"name": name, "type": string(kind)}
	if parentID != "" && parentID != models.RootID {
		req["parentId"] = parentID
	}
	var it models.Item
	if err := c.sendJSON(ctx, http.MethodPost, "/nodes", req, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

// Delete removes a node.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/nodes/"+url.PathEscape(id), "", nil, nil)
}

// Rename updates a node's display name.
func (c *Client) Rename(ctx context.Context, id, name string) error {
	return c.sendJSON(ctx, http.MethodPatch, "/nodes/"+url.PathEscape(id)+"/rename",
		map[string]string{"name": name}, nil)
}

// SetPosition overwrites an image node's ordering label.
func (c *Client) SetPosition(ctx context.Context, id string, position int) error {
	return c.sendJSON(ctx, http.MethodPatch, "/nodes/"+url.PathEscape(id)+"/position",
		map[string]int{"position": position}, nil)
}

// ImageCount returns the number of image nodes in the catalog.
func (c *Client) ImageCount(ctx context.Context) (int, error) {
	var stats struct {
		ImageCount int `json:"image_count"`
	}
	if err := c.getJSON(ctx, "/nodes/stats", &stats); err != nil {
		return 0, err
	}
	return stats.ImageCount, nil
}

// Upload sends a multipart file to a repository folder.
func (c *Client) Upload(ctx context.Context, repoID string, up navigator.Upload) (*models.Item, error) {
	return c.UploadAt(ctx, repoID, up, nil, false)
}

// UploadAt is Upload with an explicit image position; force re-issues
// the mutation past a position conflict (the backend's force_position
// flag).
func (c *Client) UploadAt(ctx context.Context, repoID string, up navigator.Upload, position *int, force bool) (*models.Item, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, up.Name))
	hdr.Set("Content-Type", up.MIME)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, fmt.Errorf("client: multipart: %w", err)
	}
	if _, err := part.Write(up.Data); err != nil {
		return nil, fmt.Errorf("client: multipart write: %w", err)
	}

	_ = mw.WriteField("name", up.Name)
	if up.DurationSeconds > 0 {
		_ = mw.WriteField("duration", strconv.Itoa(up.DurationSeconds))
	}
	if position != nil {
		_ = mw.WriteField("position", strconv.Itoa(*position))
	}
	if force {
		_ = mw.WriteField("force_position", "true")
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("client: multipart close: %w", err)
	}

	var it models.Item
	path := "/repo/" + url.PathEscape(repoID) + "/upload"
	if err := c.do(ctx, http.MethodPost, path, mw.FormDataContentType(), &buf, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

// Search queries node names.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	v := url.Values{"query": {query}}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Results []SearchHit `json:"results"`
	}
	if err := c.getJSON(ctx, "/nodes/search?"+v.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// SearchHit is one node search result.
type SearchHit struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id"`
	Kind     string `json:"kind"`
}
