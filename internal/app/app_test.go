package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/minutewire/minutewire/internal/app"
	"github.com/minutewire/minutewire/internal/intel"
	"github.com/minutewire/minutewire/internal/meeting"
	"github.com/minutewire/minutewire/pkg/audio"
	"github.com/minutewire/minutewire/pkg/provider/stt"
	sttmock "github.com/minutewire/minutewire/pkg/provider/stt/mock"
	"github.com/minutewire/minutewire/pkg/store/postgres"
)

const shutdownTestTimeout = 5 * time.Second

// storeMock is an in-memory MeetingStore double.
type storeMock struct {
	mu      sync.Mutex
	saved   map[uuid.UUID]meeting.Export
	reports map[uuid.UUID]*intel.Report
	pingErr error
}

func newStoreMock() *storeMock {
	return &storeMock{
		saved:   make(map[uuid.UUID]meeting.Export),
		reports: make(map[uuid.UUID]*intel.Report),
	}
}

func (s *storeMock) SaveMeeting(_ context.Context, export meeting.Export, report *intel.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[export.ID] = export
	s.reports[export.ID] = report
	return nil
}

func (s *storeMock) GetMeeting(_ context.Context, id uuid.UUID) (meeting.Export, *intel.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	export, ok := s.saved[id]
	if !ok {
		return meeting.Export{}, nil, postgres.ErrNotFound
	}
	return export, s.reports[id], nil
}

func (s *storeMock) ListMeetings(_ context.Context, _ int) ([]postgres.MeetingSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summaries := make([]postgres.MeetingSummary, 0, len(s.saved))
	for _, export := range s.saved {
		summaries = append(summaries, postgres.MeetingSummary{
			ID:         export.ID,
			Title:      export.Title,
			Utterances: len(export.Utterances),
			Speakers:   len(export.Speakers),
		})
	}
	return summaries, nil
}

func (s *storeMock) Ping(context.Context) error { return s.pingErr }

func (s *storeMock) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

// newTestApp wires an App with mock providers and an in-memory store.
func newTestApp(t *testing.T, provider stt.Provider, opts ...app.Option) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), testConfig(), &app.Providers{STT: provider}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTestTimeout)
		defer cancel()
		a.Shutdown(ctx)
	})
	return a
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNew_RequiresSTTProvider(t *testing.T) {
	t.Parallel()

	if _, err := app.New(context.Background(), testConfig(), &app.Providers{}); err == nil {
		t.Fatal("expected error for missing STT provider, got nil")
	}
}

func TestAPI_SessionLifecycle(t *testing.T) {
	t.Parallel()

	store := newStoreMock()
	a := newTestApp(t, &sttmock.Provider{}, app.WithStore(store))
	h := a.Handler()

	// No session yet.
	if rec := doJSON(t, h, http.MethodGet, "/api/session", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("GET /api/session before start: got %d, want 404", rec.Code)
	}

	// Start.
	rec := doJSON(t, h, http.MethodPost, "/api/session/start", map[string]string{"title": "retro"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: got %d, want 201: %s", rec.Code, rec.Body)
	}
	var started struct {
		SessionID uuid.UUID `json:"sessionId"`
		Title     string    `json:"title"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode start response: %v", err)
	}
	if started.Title != "retro" {
		t.Errorf("started title: got %q, want %q", started.Title, "retro")
	}

	// A second start conflicts.
	if rec := doJSON(t, h, http.MethodPost, "/api/session/start", nil); rec.Code != http.StatusConflict {
		t.Errorf("second start: got %d, want 409", rec.Code)
	}

	// Info is available while running.
	if rec := doJSON(t, h, http.MethodGet, "/api/session", nil); rec.Code != http.StatusOK {
		t.Errorf("GET /api/session: got %d, want 200", rec.Code)
	}

	// Stop persists and returns the export.
	rec = doJSON(t, h, http.MethodPost, "/api/session/stop", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop: got %d, want 200: %s", rec.Code, rec.Body)
	}
	var stopped struct {
		Meeting   meeting.Export `json:"meeting"`
		Persisted bool           `json:"persisted"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stopped); err != nil {
		t.Fatalf("decode stop response: %v", err)
	}
	if !stopped.Persisted {
		t.Error("stop response: persisted = false, want true")
	}
	if stopped.Meeting.Title != "retro" {
		t.Errorf("stopped meeting title: got %q, want %q", stopped.Meeting.Title, "retro")
	}
	if store.count() != 1 {
		t.Errorf("store saved meetings: got %d, want 1", store.count())
	}

	// Stopping again is a 404.
	if rec := doJSON(t, h, http.MethodPost, "/api/session/stop", nil); rec.Code != http.StatusNotFound {
		t.Errorf("second stop: got %d, want 404", rec.Code)
	}
}

func TestAPI_StartMalformedBody(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, &sttmock.Provider{})
	req := httptest.NewRequest(http.MethodPost, "/api/session/start", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed start body: got %d, want 400", rec.Code)
	}
}

func TestAPI_ReportWithoutSession(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, &sttmock.Provider{})
	if rec := doJSON(t, a.Handler(), http.MethodGet, "/api/report", nil); rec.Code != http.StatusNotFound {
		t.Errorf("GET /api/report: got %d, want 404", rec.Code)
	}
}

func TestAPI_MeetingsWithoutStore(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, &sttmock.Provider{})
	h := a.Handler()
	if rec := doJSON(t, h, http.MethodGet, "/api/meetings", nil); rec.Code != http.StatusNotImplemented {
		t.Errorf("GET /api/meetings: got %d, want 501", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, "/api/meetings/"+uuid.NewString(), nil); rec.Code != http.StatusNotImplemented {
		t.Errorf("GET /api/meetings/{id}: got %d, want 501", rec.Code)
	}
}

func TestAPI_GetMeeting(t *testing.T) {
	t.Parallel()

	store := newStoreMock()
	export := meeting.New("archived").Export(nil)
	if err := store.SaveMeeting(context.Background(), export, nil); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	a := newTestApp(t, &sttmock.Provider{}, app.WithStore(store))
	h := a.Handler()

	if rec := doJSON(t, h, http.MethodGet, "/api/meetings/"+export.ID.String(), nil); rec.Code != http.StatusOK {
		t.Errorf("GET existing meeting: got %d, want 200", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, "/api/meetings/"+uuid.NewString(), nil); rec.Code != http.StatusNotFound {
		t.Errorf("GET missing meeting: got %d, want 404", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, "/api/meetings/not-a-uuid", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("GET invalid id: got %d, want 400", rec.Code)
	}
}

func TestAPI_HealthAndReadiness(t *testing.T) {
	t.Parallel()

	store := newStoreMock()
	a := newTestApp(t, &sttmock.Provider{}, app.WithStore(store))
	h := a.Handler()

	if rec := doJSON(t, h, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("GET /healthz: got %d, want 200", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, "/readyz", nil); rec.Code != http.StatusOK {
		t.Errorf("GET /readyz: got %d, want 200", rec.Code)
	}

	store.pingErr = context.DeadlineExceeded
	if rec := doJSON(t, h, http.MethodGet, "/readyz", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /readyz with failing store: got %d, want 503", rec.Code)
	}
}

func TestAPI_Metrics(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, &sttmock.Provider{})
	if rec := doJSON(t, a.Handler(), http.MethodGet, "/metrics", nil); rec.Code != http.StatusOK {
		t.Errorf("GET /metrics: got %d, want 200", rec.Code)
	}
}

func TestShutdown_StopsActiveSession(t *testing.T) {
	t.Parallel()

	store := newStoreMock()
	a := newTestApp(t, &sttmock.Provider{}, app.WithStore(store))

	rec := doJSON(t, a.Handler(), http.MethodPost, "/api/session/start", map[string]string{"title": "cut short"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: got %d, want 201", rec.Code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTestTimeout)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if store.count() != 1 {
		t.Errorf("meetings persisted during shutdown: got %d, want 1", store.count())
	}
}

// stereoPCM builds one interleaved two-channel PCM16 frame where every left
// sample is l and every right sample is r.
func stereoPCM(l, r float32, samplesPerChannel int) []byte {
	interleaved := make([]float32, 0, samplesPerChannel*2)
	for range samplesPerChannel {
		interleaved = append(interleaved, l, r)
	}
	return audio.Float32ToPCM16(interleaved)
}

func TestAPI_IngestRejectsBadChannelCount(t *testing.T) {
	t.Parallel()

	a := newTestApp(t, &sttmock.Provider{})
	if rec := doJSON(t, a.Handler(), http.MethodPost, "/api/session/start", nil); rec.Code != http.StatusCreated {
		t.Fatalf("start: status %d", rec.Code)
	}

	for _, q := range []string{"channels=0", "channels=9", "channels=two"} {
		if rec := doJSON(t, a.Handler(), http.MethodGet, "/ingest?"+q, nil); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want %d", q, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestAPI_IngestStereoDownmix(t *testing.T) {
	t.Parallel()

	provider := &sttmock.Provider{Result: stt.Result{Text: "stereo stream"}}
	a := newTestApp(t, provider)

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)

	if rec := doJSON(t, a.Handler(), http.MethodPost, "/api/session/start", nil); rec.Code != http.StatusCreated {
		t.Fatalf("start: status %d", rec.Code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ingest?channels=2", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	const frameSamples = 480 // 30ms at 16kHz

	// Opposite-phase channels cancel out under downmix, so the segmenter
	// must see silence and open no utterance.
	for range 6 {
		if err := conn.Write(ctx, websocket.MessageBinary, stereoPCM(0.5, -0.5, frameSamples)); err != nil {
			t.Fatalf("write cancelling frame: %v", err)
		}
	}

	// In-phase speech followed by silence finalizes exactly one utterance.
	for range 5 {
		if err := conn.Write(ctx, websocket.MessageBinary, stereoPCM(0.5, 0.5, frameSamples)); err != nil {
			t.Fatalf("write speech frame: %v", err)
		}
	}
	for range 4 {
		if err := conn.Write(ctx, websocket.MessageBinary, stereoPCM(0, 0, frameSamples)); err != nil {
			t.Fatalf("write silence frame: %v", err)
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		rec := doJSON(t, a.Handler(), http.MethodGet, "/api/session", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("session info: status %d", rec.Code)
		}
		var info struct {
			Utterances int `json:"utterances"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
			t.Fatalf("decode session info: %v", err)
		}
		if info.Utterances == 1 {
			return
		}
		if info.Utterances > 1 {
			t.Fatalf("utterances = %d, want 1 (cancelling frames registered as speech)", info.Utterances)
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the downmixed utterance")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
