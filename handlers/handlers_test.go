package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ifcserver/db"
	"ifcserver/ifc/ifctest"
	"ifcserver/models"
	"ifcserver/processing"
	"ifcserver/properties"
	"ifcserver/storage"
	"ifcserver/viewer"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router   *gin.Engine
	handlers *Handlers
	storage  *storage.DiskStorage
	store    *properties.MemoryStore
	events   chan processing.Event
	cookies  []*http.Cookie
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	instance, err := db.OpenSQLite(filepath.Join(t.TempDir(), "handlers.db"))
	require.NoError(t, err)
	sqlDB, err := instance.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	db.Instance = instance
	models.Init()

	st, err := storage.NewDiskStorage(t.TempDir())
	require.NoError(t, err)
	store := properties.NewMemoryStore()
	pipeline := processing.New(st, store, processing.NewMemoryTaskStore(), models.ModelExists, 8)
	events := make(chan processing.Event, 16)
	pipeline.Subscribe(func(e processing.Event) { events <- e })

	h := New(st, store, pipeline, viewer.NewRegistry(time.Minute))
	h.MaxUploadSize = 1 << 20
	h.MinFreeSpace = 0
	pipeline.Start(context.Background(), 2)
	t.Cleanup(pipeline.Stop)

	router := gin.New()
	router.Use(sessions.Sessions("token", cookie.NewStore([]byte("test secret"))))
	h.Register(router)
	return &testServer{router: router, handlers: h, storage: st, store: store, events: events}
}

// do sends the request with the cookies collected so far
func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if cookies := w.Result().Cookies(); len(cookies) > 0 {
		s.cookies = cookies
	}
	return w
}

func (s *testServer) request(method, target string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.do(req)
}

func (s *testServer) upload(t *testing.T, filename string, content []byte, name string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if name != "" {
		require.NoError(t, writer.WriteField("name", name))
	}
	if content != nil {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/models", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return s.do(req)
}

// uploadExtracted uploads three walls with #2 malformed and waits for the extraction
func (s *testServer) uploadExtracted(t *testing.T) models.Model {
	t.Helper()
	w := s.upload(t, "three walls.ifc", ifctest.Build("IFC4", ifctest.Walls(3, 2)...), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var model models.Model
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &model))
	select {
	case e := <-s.events:
		require.Equal(t, model.ID, e.ModelID)
		require.Equal(t, processing.StatusDone, e.Status)
	case <-time.After(5 * time.Second):
		t.Fatal("no extraction event")
	}
	return model
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var result T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result), w.Body.String())
	return result
}

func TestModelUpload_EndToEnd(t *testing.T) {
	s := newTestServer(t)
	model := s.uploadExtracted(t)

	assert.Equal(t, "three walls", model.Name)
	assert.Equal(t, "three_walls.ifc", model.OriginalFilename)
	assert.Equal(t, defaultMimeType, model.MimeType)
	assert.True(t, strings.HasSuffix(model.Filename, ".ifc"))
	assert.NotZero(t, model.Size)

	w := s.request(http.MethodGet, "/api/models/1/properties/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	attrs := decode[map[string]any](t, w)
	assert.Equal(t, "Wall 1", attrs["Name"])
	assert.Equal(t, "IFCWALL", attrs["type"])
	assert.Equal(t, float64(1), attrs["expressID"])

	w = s.request(http.MethodGet, "/api/models/1/properties/2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, PropertiesUnavailable, decode[Response](t, w))

	w = s.request(http.MethodGet, "/api/models/1/properties", nil)
	require.Equal(t, http.StatusOK, w.Code)
	records := decode[[]map[string]any](t, w)
	require.Len(t, records, 2)
	assert.Equal(t, float64(1), records[0]["expressId"])
	assert.Equal(t, float64(3), records[1]["expressId"])

	w = s.request(http.MethodGet, "/api/models/1/extraction", nil)
	require.Equal(t, http.StatusOK, w.Code)
	task := decode[processing.ExtractionTask](t, w)
	assert.Equal(t, processing.StatusDone, task.Status)
	assert.Equal(t, 2, task.Elements)
	assert.Equal(t, 1, task.Failed)

	w = s.request(http.MethodGet, "/api/models", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Model](t, w), 1)

	w = s.request(http.MethodGet, "/api/models/1/file", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "three_walls.ifc")
	assert.True(t, strings.HasPrefix(w.Body.String(), "ISO-10303-21;"))
}

func TestModelUpload_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		setup   func(h *Handlers)
		code    int
	}{
		{"missing file", nil, nil, http.StatusBadRequest},
		{"too large", bytes.Repeat([]byte("x"), 64), func(h *Handlers) { h.MaxUploadSize = 10 }, http.StatusRequestEntityTooLarge},
		{"no space", []byte("ISO-10303-21;"), func(h *Handlers) { h.MinFreeSpace = math.MaxInt64 }, http.StatusInsufficientStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			if tt.setup != nil {
				tt.setup(s.handlers)
			}
			w := s.upload(t, "model.ifc", tt.content, "")
			assert.Equal(t, tt.code, w.Code, w.Body.String())

			list, err := models.ListModels()
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestModelUpload_ParseFailureKeepsModel(t *testing.T) {
	s := newTestServer(t)
	w := s.upload(t, "broken.ifc", []byte("not an ifc file"), "Broken")
	require.Equal(t, http.StatusCreated, w.Code)
	select {
	case e := <-s.events:
		assert.Equal(t, processing.StatusFailed, e.Status)
	case <-time.After(5 * time.Second):
		t.Fatal("no extraction event")
	}

	w = s.request(http.MethodGet, "/api/models/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Broken", decode[models.Model](t, w).Name)
	w = s.request(http.MethodGet, "/api/models/1/properties", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestModelGet(t *testing.T) {
	s := newTestServer(t)
	s.uploadExtracted(t)
	tests := []struct {
		target string
		code   int
	}{
		{"/api/models/1", http.StatusOK},
		{"/api/models/2", http.StatusNotFound},
		{"/api/models/abc", http.StatusBadRequest},
		{"/api/models/0", http.StatusBadRequest},
		{"/api/models/2/properties", http.StatusNotFound},
		{"/api/models/1/properties/abc", http.StatusBadRequest},
		{"/api/models/2/extraction", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.code, s.request(http.MethodGet, tt.target, nil).Code)
		})
	}
}

func TestModelDelete(t *testing.T) {
	s := newTestServer(t)
	model := s.uploadExtracted(t)
	_, err := os.Stat(s.storage.GetFullPath(model.Filename))
	require.NoError(t, err)

	w := s.request(http.MethodDelete, "/api/models/1", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, http.StatusNotFound, s.request(http.MethodGet, "/api/models/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.request(http.MethodGet, "/api/models/1/properties/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.request(http.MethodGet, "/api/models/1/extraction", nil).Code)
	records, err := s.store.ListByModel(context.Background(), model.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
	_, err = os.Stat(s.storage.GetFullPath(model.Filename))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	assert.Equal(t, http.StatusNotFound, s.request(http.MethodDelete, "/api/models/1", nil).Code)
}

type pickResponse struct {
	ExpressID  int64          `json:"expressId"`
	Confidence string         `json:"confidence"`
	Properties map[string]any `json:"properties"`
	Highlight  []string       `json:"highlight"`
}

func TestView(t *testing.T) {
	s := newTestServer(t)
	s.uploadExtracted(t)

	assert.Equal(t, http.StatusNotFound, s.request(http.MethodPost, "/api/view/pick", gin.H{"fragment": "f1", "hit": 0}).Code)

	w := s.request(http.MethodPost, "/api/models/1/view", gin.H{"fragments": []gin.H{
		{"id": "f1", "elementIds": []int64{1}},
		{"id": "f3", "elementIds": []int64{3}},
		{"id": "merged", "elementIds": []int64{5, 9, 14}},
		{"id": "split", "elementIds": []int64{1, 3}, "regions": []gin.H{{"start": 0, "count": 10}, {"start": 10, "count": 5}}},
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 1, s.handlers.Views.Len())

	tests := []struct {
		fragment   string
		hit        int64
		expressID  int64
		confidence string
		name       any
		highlight  []string
	}{
		{"f1", 0, 1, "exact", "Wall 1", []string{"f1", "split"}},
		{"split", 12, 3, "exact", "Wall 3", []string{"f3", "split"}},
		{"merged", 4, 5, "approximate", nil, []string{"merged"}},
		{"unknown", 0, 0, "none", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.fragment, func(t *testing.T) {
			w := s.request(http.MethodPost, "/api/view/pick", gin.H{"fragment": tt.fragment, "hit": tt.hit})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			pick := decode[pickResponse](t, w)
			assert.Equal(t, tt.expressID, pick.ExpressID)
			assert.Equal(t, tt.confidence, pick.Confidence)
			assert.Equal(t, tt.highlight, pick.Highlight)
			if tt.name == nil {
				assert.Nil(t, pick.Properties)
			} else {
				assert.Equal(t, tt.name, pick.Properties["Name"])
			}
		})
	}

	assert.Equal(t, http.StatusBadRequest, s.request(http.MethodPost, "/api/view/pick", gin.H{"fragment": "f1"}).Code)
	assert.Equal(t, http.StatusNoContent, s.request(http.MethodDelete, "/api/view", nil).Code)
	assert.Equal(t, 0, s.handlers.Views.Len())
	assert.Equal(t, http.StatusNotFound, s.request(http.MethodPost, "/api/view/pick", gin.H{"fragment": "f1", "hit": 0}).Code)
}

func TestViewOpen_Invalid(t *testing.T) {
	s := newTestServer(t)
	s.uploadExtracted(t)
	tests := []struct {
		name string
		body any
		code int
	}{
		{"no body", nil, http.StatusBadRequest},
		{"empty id", gin.H{"fragments": []gin.H{{"id": "", "elementIds": []int64{1}}}}, http.StatusBadRequest},
		{"no elements", gin.H{"fragments": []gin.H{{"id": "f"}}}, http.StatusBadRequest},
		{"duplicate", gin.H{"fragments": []gin.H{{"id": "f", "elementIds": []int64{1}}, {"id": "f", "elementIds": []int64{3}}}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, s.request(http.MethodPost, "/api/models/1/view", tt.body).Code)
		})
	}
	assert.Equal(t, http.StatusNotFound, s.request(http.MethodPost, "/api/models/9/view", gin.H{"fragments": []gin.H{}}).Code)
	assert.Equal(t, 0, s.handlers.Views.Len())
}

type fakeExtractor struct {
	submitErr error
	submitted []uint64
}

func (f *fakeExtractor) Submit(modelID uint64, path string) error {
	f.submitted = append(f.submitted, modelID)
	return f.submitErr
}

func (f *fakeExtractor) Status(ctx context.Context, modelID uint64) (*processing.ExtractionTask, error) {
	return nil, processing.ErrTaskNotFound
}

func (f *fakeExtractor) Forget(ctx context.Context, modelID uint64) error { return nil }

func (f *fakeExtractor) Subscribe(fn func(processing.Event)) {}

func TestExtractionStart(t *testing.T) {
	s := newTestServer(t)
	s.uploadExtracted(t)
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"queued", nil, http.StatusAccepted},
		{"already queued", processing.ErrAlreadyQueued, http.StatusConflict},
		{"queue full", processing.ErrQueueFull, http.StatusServiceUnavailable},
		{"stopped", processing.ErrStopped, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeExtractor{submitErr: tt.err}
			s.handlers.Extractor = fake
			assert.Equal(t, tt.code, s.request(http.MethodPost, "/api/models/1/extract", nil).Code)
			assert.Equal(t, []uint64{1}, fake.submitted)
		})
	}
	assert.Equal(t, http.StatusNotFound, s.request(http.MethodPost, "/api/models/7/extract", nil).Code)
}

func TestEvents(t *testing.T) {
	s := newTestServer(t)
	server := httptest.NewServer(s.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/events?model=4"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	// The pong proves the client is registered
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(message))
	assert.Equal(t, 1, s.handlers.Events.Count())

	s.handlers.Events.Publish(processing.Event{ModelID: 3, Status: processing.StatusDone})
	s.handlers.Events.Publish(processing.Event{ModelID: 4, Status: processing.StatusFailed, Error: "boom"})
	_, message, err = conn.ReadMessage()
	require.NoError(t, err)
	var event processing.Event
	require.NoError(t, json.Unmarshal(message, &event))
	assert.Equal(t, processing.Event{ModelID: 4, Status: processing.StatusFailed, Error: "boom"}, event)

	w := s.request(http.MethodGet, "/api/events?model=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
