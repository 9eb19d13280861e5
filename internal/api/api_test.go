package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/amsel/raido/internal/catalog"
	"github.com/amsel/raido/internal/media"
	"github.com/amsel/raido/internal/models"
	"github.com/amsel/raido/internal/nodeservice"
)

// testEnv sets up media dir, SQLite catalog, service, and router.
// authToken == "" means disabled mode.
func testEnv(t *testing.T, authToken string) (*nodeservice.Service, http.Handler) {
	t.Helper()

	mediaDir := t.TempDir()
	store, err := media.NewFS(mediaDir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	dbFile, err := os.CreateTemp("", "raido-api-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := catalog.Open(dbFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := nodeservice.NewService(db, store)
	router := NewRouter(svc, db, RouterOptions{AuthEnabled: authToken != "", Token: authToken})
	return svc, router
}

func doJSON(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	} else {
		r = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, r)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, w.Body.String())
	}
	return env
}

func createFolder(t *testing.T, svc *nodeservice.Service, name string, kind models.FolderKind, parentID string) *models.Item {
	t.Helper()
	it, err := svc.CreateFolder(context.Background(), name, kind, parentID)
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	return it
}

func TestCreateAndGetNode(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/nodes", map[string]string{
		"name": "Old Town", "type": "location",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	env := decodeEnvelope(t, w)
	if env.Status != "success" {
		t.Fatalf("status = %q", env.Status)
	}
	created, _ := json.Marshal(env.Data)
	var it models.Item
	_ = json.Unmarshal(created, &it)
	if it.ID == "" || it.FolderKind != models.FolderLocation {
		t.Fatalf("created item = %+v", it)
	}

	w = doJSON(t, router, http.MethodGet, "/nodes/"+it.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
}

func TestCreateNode_Validation(t *testing.T) {
	_, router := testEnv(t, "")

	cases := []map[string]string{
		{"name": "", "type": "location"},
		{"name": "x", "type": "playlist"},
		{"name": "x"},
	}
	for _, body := range cases {
		w := doJSON(t, router, http.MethodPost, "/nodes", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %v: status = %d, want 400", body, w.Code)
		}
		if env := decodeEnvelope(t, w); env.Status != "error" || env.Message == "" {
			t.Errorf("body %v: envelope = %+v", body, env)
		}
	}
}

func TestCreateNode_MapChildPolicy(t *testing.T) {
	svc, router := testEnv(t, "")
	m := createFolder(t, svc, "Map", models.FolderMap, "")

	w := doJSON(t, router, http.MethodPost, "/nodes", map[string]string{
		"name": "Nested", "type": "location", "parentId": m.ID,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/nodes", map[string]string{
		"name": "Fountain", "type": "spot", "parentId": m.ID,
	})
	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestListParentNodesAndChildren(t *testing.T) {
	svc, router := testEnv(t, "")
	loc := createFolder(t, svc, "Loc", models.FolderLocation, "")
	createFolder(t, svc, "Spot", models.FolderSpot, loc.ID)

	w := doJSON(t, router, http.MethodGet, "/nodes/parent-nodes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var env struct {
		Status string           `json:"status"`
		Data   NodeListResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if len(env.Data.Nodes) != 1 || env.Data.Nodes[0].ID != loc.ID {
		t.Errorf("nodes = %+v", env.Data.Nodes)
	}

	w = doJSON(t, router, http.MethodGet, "/nodes/"+loc.ID+"/children", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("children status = %d", w.Code)
	}

	// A missing node resolves before listing.
	w = doJSON(t, router, http.MethodGet, "/nodes/ghost/children", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("ghost children status = %d, want 404", w.Code)
	}
}

func TestChildrenOfEmptyFolderIsEmptyArray(t *testing.T) {
	svc, router := testEnv(t, "")
	loc := createFolder(t, svc, "Loc", models.FolderLocation, "")

	w := doJSON(t, router, http.MethodGet, "/nodes/"+loc.ID+"/children", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"nodes":[]`)) {
		t.Errorf("expected empty array, body = %s", w.Body.String())
	}
}

func TestRenameNode(t *testing.T) {
	svc, router := testEnv(t, "")
	loc := createFolder(t, svc, "Before", models.FolderLocation, "")

	w := doJSON(t, router, http.MethodPatch, "/nodes/"+loc.ID+"/rename", map[string]string{"name": "After"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	it, err := svc.Node(context.Background(), loc.ID)
	if err != nil || it.Name != "After" {
		t.Errorf("node = %+v, %v", it, err)
	}

	w = doJSON(t, router, http.MethodPatch, "/nodes/"+loc.ID+"/rename", map[string]string{"name": ""})
	if w.Code != http.StatusBadRequest {
		t.Errorf("blank rename status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPatch, "/nodes/ghost/rename", map[string]string{"name": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("ghost rename status = %d", w.Code)
	}
}

func TestDeleteNode(t *testing.T) {
	svc, router := testEnv(t, "")
	loc := createFolder(t, svc, "Loc", models.FolderLocation, "")

	w := doJSON(t, router, http.MethodDelete, "/nodes/"+loc.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	w = doJSON(t, router, http.MethodDelete, "/nodes/"+loc.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
	if _, err := svc.Node(context.Background(), loc.ID); err == nil {
		t.Error("node still present after delete")
	}
}

// uploadRequest builds a multipart upload. The file part carries no
// explicit content type so the handler's sniffing path is exercised.
func uploadRequest(t *testing.T, target, field, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatal(err)
	}
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUpload_ImageSniffedAndPositioned(t *testing.T) {
	svc, router := testEnv(t, "")
	spot := createFolder(t, svc, "Spot", models.FolderSpot, "")

	// A real PNG header so DetectContentType classifies it.
	png := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 16)...)
	req := uploadRequest(t, "/repo/"+spot.ID+"/upload", "file", "front.png", png, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	env := decodeEnvelope(t, w)
	raw, _ := json.Marshal(env.Data)
	var it models.Item
	_ = json.Unmarshal(raw, &it)
	if !it.IsImage() || it.Image == nil {
		t.Fatalf("item = %+v", it)
	}
	if it.Image.Position != 0 {
		t.Errorf("position = %d, want 0", it.Image.Position)
	}
}

func TestUpload_PositionConflictAndForce(t *testing.T) {
	svc, router := testEnv(t, "")
	spot := createFolder(t, svc, "Spot", models.FolderSpot, "")
	png := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 16)...)

	send := func(name string, fields map[string]string) *httptest.ResponseRecorder {
		req := uploadRequest(t, "/repo/"+spot.ID+"/upload", "file", name, png, fields)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	if w := send("a.png", map[string]string{"position": "0"}); w.Code != http.StatusCreated {
		t.Fatalf("first upload status = %d", w.Code)
	}
	w := send("b.png", map[string]string{"position": "0"})
	if w.Code != http.StatusConflict {
		t.Fatalf("conflict status = %d, body = %s", w.Code, w.Body.String())
	}
	if env := decodeEnvelope(t, w); env.Status != "error" {
		t.Errorf("envelope = %+v", env)
	}
	if w := send("b.png", map[string]string{"position": "0", "force_position": "true"}); w.Code != http.StatusCreated {
		t.Errorf("forced upload status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestUpload_RejectsUnsupportedType(t *testing.T) {
	svc, router := testEnv(t, "")
	spot := createFolder(t, svc, "Spot", models.FolderSpot, "")

	req := uploadRequest(t, "/repo/"+spot.ID+"/upload", "file", "notes.txt", []byte("plain text here"), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUpload_MissingFileField(t *testing.T) {
	svc, router := testEnv(t, "")
	spot := createFolder(t, svc, "Spot", models.FolderSpot, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("name", "x")
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/repo/"+spot.ID+"/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRepoFiles(t *testing.T) {
	svc, router := testEnv(t, "")
	spot := createFolder(t, svc, "Spot", models.FolderSpot, "")
	if _, err := svc.UploadFile(context.Background(), spot.ID, nodeservice.UploadRequest{
		Name: "intro.mp3", MIME: "audio/mpeg", Data: []byte("x"),
	}); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, http.MethodGet, "/repo/"+spot.ID+"/files", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var env struct {
		Data NodeListResponse `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	if len(env.Data.Nodes) != 1 || !env.Data.Nodes[0].IsAudio() {
		t.Errorf("nodes = %+v", env.Data.Nodes)
	}
}

func TestSetNodePosition(t *testing.T) {
	svc, router := testEnv(t, "")
	spot := createFolder(t, svc, "Spot", models.FolderSpot, "")
	img, err := svc.UploadFile(context.Background(), spot.ID, nodeservice.UploadRequest{Name: "a.png", MIME: "image/png", Data: []byte("x")})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UploadFile(context.Background(), spot.ID, nodeservice.UploadRequest{Name: "b.png", MIME: "image/png", Data: []byte("x")}); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, http.MethodPatch, "/nodes/"+img.ID+"/position", map[string]int{"position": 1})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	w = doJSON(t, router, http.MethodPatch, "/nodes/"+img.ID+"/position", map[string]int{"position": 9})
	if w.Code != http.StatusBadRequest {
		t.Errorf("out of range status = %d", w.Code)
	}
}

func TestSearchNodes(t *testing.T) {
	svc, router := testEnv(t, "")
	createFolder(t, svc, "Old Town", models.FolderLocation, "")

	w := doJSON(t, router, http.MethodGet, "/nodes/search?query=town", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("Old Town")) {
		t.Errorf("body = %s", w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/nodes/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing query status = %d", w.Code)
	}
}

func TestNodeStats(t *testing.T) {
	svc, router := testEnv(t, "")
	spot := createFolder(t, svc, "Spot", models.FolderSpot, "")
	if _, err := svc.UploadFile(context.Background(), spot.ID, nodeservice.UploadRequest{Name: "a.png", MIME: "image/png", Data: []byte("x")}); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, router, http.MethodGet, "/nodes/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"image_count":1`)) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestAccessCodeLifecycle(t *testing.T) {
	_, router := testEnv(t, "")
	from := time.Now().UTC().Add(-time.Hour)
	until := from.Add(48 * time.Hour)

	w := doJSON(t, router, http.MethodPost, "/codes", map[string]any{
		"code": "SUMMER26", "label": "summer season",
		"valid_from": from, "valid_until": until,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	env := decodeEnvelope(t, w)
	raw, _ := json.Marshal(env.Data)
	var code models.AccessCode
	_ = json.Unmarshal(raw, &code)
	if code.ID == "" {
		t.Fatalf("code = %+v", code)
	}

	// Duplicate value conflicts.
	w = doJSON(t, router, http.MethodPost, "/codes", map[string]any{
		"code": "SUMMER26", "valid_from": from, "valid_until": until,
	})
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/codes/SUMMER26/validate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("validate status = %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"valid":true`)) {
		t.Errorf("body = %s", w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/codes/UNKNOWN1/validate", nil)
	if !bytes.Contains(w.Body.Bytes(), []byte(`"valid":false`)) {
		t.Errorf("unknown code body = %s", w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/codes", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("SUMMER26")) {
		t.Errorf("list status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodDelete, "/codes/"+code.ID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("delete status = %d", w.Code)
	}
}

func TestCreateCode_Validation(t *testing.T) {
	_, router := testEnv(t, "")
	now := time.Now().UTC()

	// Too short.
	w := doJSON(t, router, http.MethodPost, "/codes", map[string]any{
		"code": "abc", "valid_from": now, "valid_until": now.Add(time.Hour),
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("short code status = %d", w.Code)
	}
	// Window inverted.
	w = doJSON(t, router, http.MethodPost, "/codes", map[string]any{
		"code": "GOODCODE", "valid_from": now, "valid_until": now.Add(-time.Hour),
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("inverted window status = %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, router := testEnv(t, "sekrit")

	req := httptest.NewRequest(http.MethodGet, "/nodes/parent-nodes", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/nodes/parent-nodes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/nodes/parent-nodes", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("valid token status = %d", w.Code)
	}
}

func TestErrorEnvelopeShape(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodGet, "/nodes/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Status != "error" || env.Message != "not found" || env.Data != nil {
		t.Errorf("envelope = %+v", env)
	}
}
