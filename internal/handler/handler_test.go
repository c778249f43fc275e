package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/vidstore/stream-ingestion-go/internal/asset"
	"github.com/vidstore/stream-ingestion-go/internal/db/models"
	"github.com/vidstore/stream-ingestion-go/internal/db/repository"
	"github.com/vidstore/stream-ingestion-go/internal/middleware"
	"github.com/vidstore/stream-ingestion-go/internal/poll"
	"github.com/vidstore/stream-ingestion-go/internal/service"
	"github.com/vidstore/stream-ingestion-go/internal/streamclient"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testToken = "admin-session-token"

// fakeRemote backs the service with an in-memory asset collection. Status
// reads flip an asset to ready so polling completes on the second attempt.
type fakeRemote struct {
	mu     sync.Mutex
	assets map[string]*asset.VideoAsset
	nextID int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{assets: map[string]*asset.VideoAsset{}}
}

func (f *fakeRemote) CreateUploadTarget(ctx context.Context) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := "asset-" + string(rune('a'+f.nextID-1))
	f.assets[id] = &asset.VideoAsset{
		ID:              id,
		ProcessingState: asset.ProcessingQueued,
		Metadata:        map[string]string{},
	}
	return "https://upload.test/dest/" + id, id, nil
}

func (f *fakeRemote) TransferBytes(ctx context.Context, endpoint string, src io.Reader, size int64, onProgress func(int)) error {
	if _, err := io.Copy(io.Discard, src); err != nil {
		return err
	}
	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

func (f *fakeRemote) AttachMetadata(ctx context.Context, assetID string, meta map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assets[assetID]
	if !ok {
		return &streamclient.NotFoundError{AssetID: assetID}
	}
	a.Metadata = meta
	a.Approved = asset.ApprovedValue(meta)
	return nil
}

func (f *fakeRemote) FetchStatus(ctx context.Context, assetID string) (*streamclient.AssetStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assets[assetID]
	if !ok {
		return nil, &streamclient.NotFoundError{AssetID: assetID}
	}
	if a.ProcessingState == asset.ProcessingReady {
		return &streamclient.AssetStatus{
			Ready:        true,
			State:        "ready",
			PlaybackRefs: []string{"https://cdn.test/" + assetID + "/index.m3u8"},
		}, nil
	}
	a.ProcessingState = asset.ProcessingReady
	return &streamclient.AssetStatus{Ready: false, State: "inprogress"}, nil
}

func (f *fakeRemote) GetAsset(ctx context.Context, assetID string) (*asset.VideoAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assets[assetID]
	if !ok {
		return nil, &streamclient.NotFoundError{AssetID: assetID}
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRemote) ListAssets(ctx context.Context) ([]*asset.VideoAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*asset.VideoAsset, 0, len(f.assets))
	for _, a := range f.assets {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeRemote) DeleteAsset(ctx context.Context, assetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.assets, assetID)
	return nil
}

func newTestRouter(remote *fakeRemote) *gin.Engine {
	return newTestRouterWithEvents(remote, nil)
}

func newTestRouterWithEvents(remote *fakeRemote, events repository.IngestEventRepository) *gin.Engine {
	svc := service.New(remote, poll.New(remote, 0, 30), 0, service.Options{Events: events})
	return NewRouter(RouterDeps{
		Upload:   NewUploadHandler(svc, 0),
		Video:    NewVideoHandler(svc, events),
		Sessions: middleware.NewStaticTokenChecker([]string{testToken}),
		Health:   NewHealthHandler(nil, nil),
	})
}

// fakeEventLog is an in-memory IngestEventRepository.
type fakeEventLog struct {
	mu     sync.Mutex
	events []*models.IngestEvent
}

func (f *fakeEventLog) Append(ctx context.Context, event *models.IngestEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	event.ID = int64(len(f.events) + 1)
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEventLog) ListByAsset(ctx context.Context, assetID string) ([]*models.IngestEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.IngestEvent
	for _, e := range f.events {
		if e.AssetID == assetID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEventLog) ListRecent(ctx context.Context, limit int) ([]*models.IngestEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.IngestEvent
	for i := len(f.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.events[i])
	}
	return out, nil
}

func seed(remote *fakeRemote, id string, state asset.ProcessingState, approved bool) {
	flag := "false"
	if approved {
		flag = "true"
	}
	remote.assets[id] = &asset.VideoAsset{
		ID:              id,
		ProcessingState: state,
		Approved:        approved,
		Metadata:        map[string]string{asset.KeyName: id, asset.KeyIsApproved: flag},
	}
}

func doRequest(router *gin.Engine, method, path string, body io.Reader, authed bool, contentType string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	router.ServeHTTP(w, req)
	return w
}

func multipartUpload(t *testing.T, filename, contentType, title string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
	hdr["Content-Type"] = []string{contentType}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("fake video bytes"))

	if title != "" {
		mw.WriteField("title", title)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestPublicListingShowsOnlyVisibleAssets(t *testing.T) {
	remote := newFakeRemote()
	seed(remote, "visible", asset.ProcessingReady, true)
	seed(remote, "pending", asset.ProcessingReady, false)
	seed(remote, "transcoding", asset.Processing, true)

	router := newTestRouter(remote)

	w := doRequest(router, http.MethodGet, "/api/v1/videos", nil, false, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp listResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 1 || resp.Videos[0].ID != "visible" {
		t.Errorf("public listing = %+v", resp)
	}
}

func TestPublicGetHidesNonVisibleAssets(t *testing.T) {
	remote := newFakeRemote()
	seed(remote, "pending", asset.ProcessingReady, false)

	router := newTestRouter(remote)

	w := doRequest(router, http.MethodGet, "/api/v1/videos/pending", nil, false, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for a non-visible asset", w.Code)
	}

	w = doRequest(router, http.MethodGet, "/api/v1/videos/nope", nil, false, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for a missing asset", w.Code)
	}
}

func TestAdminEndpointsRequireSession(t *testing.T) {
	router := newTestRouter(newFakeRemote())

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/admin/videos"},
		{http.MethodGet, "/api/v1/admin/videos/pending"},
		{http.MethodPost, "/api/v1/admin/videos/x/approve"},
		{http.MethodDelete, "/api/v1/admin/videos/x"},
	}

	for _, p := range paths {
		w := doRequest(router, p.method, p.path, nil, false, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", p.method, p.path, w.Code)
		}
	}
}

func TestUploadFlow(t *testing.T) {
	remote := newFakeRemote()
	router := newTestRouter(remote)

	body, contentType := multipartUpload(t, "clip.mp4", "video/mp4", "My Clip")
	w := doRequest(router, http.MethodPost, "/api/v1/admin/videos", body, true, contentType)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp startUploadResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.SessionID == "" || resp.AssetID == "" {
		t.Fatalf("response = %+v", resp)
	}

	// Progress endpoint knows the session.
	w = doRequest(router, http.MethodGet, "/api/v1/admin/uploads/"+resp.SessionID, nil, true, "")
	if w.Code != http.StatusOK {
		t.Fatalf("progress status = %d", w.Code)
	}

	// The new upload must not be publicly visible, whatever its state.
	w = doRequest(router, http.MethodGet, "/api/v1/videos/"+resp.AssetID, nil, false, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("fresh upload publicly visible: status = %d", w.Code)
	}
}

func TestUploadRejectsNonVideoFile(t *testing.T) {
	router := newTestRouter(newFakeRemote())

	body, contentType := multipartUpload(t, "report.pdf", "application/pdf", "")
	w := doRequest(router, http.MethodPost, "/api/v1/admin/videos", body, true, contentType)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var resp ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error != "File Rejected" {
		t.Errorf("error = %q, want File Rejected", resp.Error)
	}
}

func TestUploadMissingFileField(t *testing.T) {
	router := newTestRouter(newFakeRemote())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("title", "no file here")
	mw.Close()

	w := doRequest(router, http.MethodPost, "/api/v1/admin/videos", &buf, true, mw.FormDataContentType())
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestProgressBadSessionIDs(t *testing.T) {
	router := newTestRouter(newFakeRemote())

	w := doRequest(router, http.MethodGet, "/api/v1/admin/uploads/not-a-uuid", nil, true, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for malformed id", w.Code)
	}

	w = doRequest(router, http.MethodGet, "/api/v1/admin/uploads/71f3e52c-9a77-4e44-8c3e-111111111111", nil, true, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for unknown session", w.Code)
	}
}

func TestApproveFlow(t *testing.T) {
	remote := newFakeRemote()
	seed(remote, "candidate", asset.ProcessingReady, false)
	router := newTestRouter(remote)

	w := doRequest(router, http.MethodPost, "/api/v1/admin/videos/candidate/approve", nil, true, "")
	if w.Code != http.StatusOK {
		t.Fatalf("approve status = %d", w.Code)
	}

	w = doRequest(router, http.MethodGet, "/api/v1/videos/candidate", nil, false, "")
	if w.Code != http.StatusOK {
		t.Errorf("approved ready asset not public: status = %d", w.Code)
	}
}

func TestApproveMissingAsset(t *testing.T) {
	router := newTestRouter(newFakeRemote())

	w := doRequest(router, http.MethodPost, "/api/v1/admin/videos/ghost/approve", nil, true, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestEditMetadata(t *testing.T) {
	remote := newFakeRemote()
	seed(remote, "v1", asset.ProcessingReady, true)
	router := newTestRouter(remote)

	payload := strings.NewReader(`{"metadata":{"description":"now with words"}}`)
	w := doRequest(router, http.MethodPatch, "/api/v1/admin/videos/v1/metadata", payload, true, "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var updated asset.VideoAsset
	json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.Metadata[asset.KeyDescription] != "now with words" {
		t.Errorf("description = %q", updated.Metadata[asset.KeyDescription])
	}
	if updated.Metadata[asset.KeyName] != "v1" {
		t.Error("edit clobbered the name field")
	}
}

func TestEditMetadataEmptyBody(t *testing.T) {
	remote := newFakeRemote()
	seed(remote, "v1", asset.ProcessingReady, true)
	router := newTestRouter(remote)

	w := doRequest(router, http.MethodPatch, "/api/v1/admin/videos/v1/metadata",
		strings.NewReader(`{"metadata":{}}`), true, "application/json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for empty update", w.Code)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	remote := newFakeRemote()
	seed(remote, "v1", asset.ProcessingReady, true)
	router := newTestRouter(remote)

	w := doRequest(router, http.MethodDelete, "/api/v1/admin/videos/v1", nil, true, "")
	if w.Code != http.StatusOK {
		t.Fatalf("first delete status = %d", w.Code)
	}

	w = doRequest(router, http.MethodDelete, "/api/v1/admin/videos/v1", nil, true, "")
	if w.Code != http.StatusOK {
		t.Errorf("second delete status = %d, want 200", w.Code)
	}
}

func TestIncrementCounterEndpoint(t *testing.T) {
	remote := newFakeRemote()
	seed(remote, "v1", asset.ProcessingReady, true)
	router := newTestRouter(remote)

	w := doRequest(router, http.MethodPost, "/api/v1/videos/v1/counters/views", nil, false, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["value"] != "1" {
		t.Errorf("value = %q, want 1", resp["value"])
	}

	w = doRequest(router, http.MethodPost, "/api/v1/videos/v1/counters/downloads", nil, false, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown counter status = %d, want 400", w.Code)
	}

	w = doRequest(router, http.MethodPost, "/api/v1/videos/ghost/counters/views", nil, false, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing asset status = %d, want 404", w.Code)
	}
}

func TestAdminListings(t *testing.T) {
	remote := newFakeRemote()
	seed(remote, "visible", asset.ProcessingReady, true)
	seed(remote, "pending", asset.ProcessingReady, false)
	router := newTestRouter(remote)

	w := doRequest(router, http.MethodGet, "/api/v1/admin/videos", nil, true, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var all listResponse
	json.Unmarshal(w.Body.Bytes(), &all)
	if all.Count != 2 {
		t.Errorf("admin listing count = %d, want 2", all.Count)
	}

	w = doRequest(router, http.MethodGet, "/api/v1/admin/videos/pending", nil, true, "")
	var pending listResponse
	json.Unmarshal(w.Body.Bytes(), &pending)
	if pending.Count != 1 || pending.Videos[0].ID != "pending" {
		t.Errorf("pending listing = %+v", pending)
	}
}

func TestRecentEventsEndpoint(t *testing.T) {
	remote := newFakeRemote()
	seed(remote, "v1", asset.ProcessingReady, false)
	events := &fakeEventLog{}
	router := newTestRouterWithEvents(remote, events)

	events.Append(context.Background(), models.NewIngestEvent("v1", "transferred", nil))
	events.Append(context.Background(), models.NewIngestEvent("v1", "ready", nil))
	events.Append(context.Background(), models.NewIngestEvent("v2", "failed", nil))

	w := doRequest(router, http.MethodGet, "/api/v1/admin/events", nil, true, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body struct {
		Count  int                   `json:"count"`
		Events []*models.IngestEvent `json:"events"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Count != 3 {
		t.Errorf("count = %d, want 3", body.Count)
	}
	if len(body.Events) == 0 || body.Events[0].EventType != "failed" {
		t.Errorf("events not newest first: %+v", body.Events)
	}

	w = doRequest(router, http.MethodGet, "/api/v1/admin/events?limit=1", nil, true, "")
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Count != 1 {
		t.Errorf("limited count = %d, want 1", body.Count)
	}

	w = doRequest(router, http.MethodGet, "/api/v1/admin/events?limit=0", nil, true, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d, want 400", w.Code)
	}
}

func TestRecentEventsWithoutAuditTrail(t *testing.T) {
	router := newTestRouter(newFakeRemote())

	w := doRequest(router, http.MethodGet, "/api/v1/admin/events", nil, true, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when audit trail disabled", w.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(newFakeRemote())

	w := doRequest(router, http.MethodGet, "/health/live", nil, false, "")
	if w.Code != http.StatusOK {
		t.Errorf("liveness status = %d", w.Code)
	}

	w = doRequest(router, http.MethodGet, "/health/ready", nil, false, "")
	if w.Code != http.StatusOK {
		t.Errorf("readiness status = %d (no backends configured)", w.Code)
	}
}
