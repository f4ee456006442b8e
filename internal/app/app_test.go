package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lifeguard-backend/internal/config"
	"lifeguard-backend/internal/db"
	"lifeguard-backend/internal/models"
	"lifeguard-backend/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// metersPerDegreeLat matches geo.Distance along a meridian
const metersPerDegreeLat = 6371000 * 3.141592653589793 / 180

type testServer struct {
	app       *fiber.App
	store     *db.SQLiteStore
	uploadDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	conn, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	store := db.NewSQLiteStore(conn)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	for _, st := range []models.Station{
		{Name: "Posto 1 Beach", Latitude: 10, Longitude: 10},
		{Name: "Harbor", Latitude: -22.98, Longitude: -43.19},
	} {
		if err := store.UpsertStation(ctx, st); err != nil {
			t.Fatalf("UpsertStation() error = %v", err)
		}
	}

	uploadDir := t.TempDir()
	objects, err := storage.NewDiskStore(uploadDir, "photos", "")
	if err != nil {
		t.Fatalf("NewDiskStore() error = %v", err)
	}

	cfg := &config.Config{}
	cfg.App.FrontendURL = "*"
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.TokenTTL = time.Hour
	cfg.CheckIn.ThresholdMeters = 50
	cfg.CheckIn.GeolocationTimeout = time.Second
	cfg.CheckIn.ResetDelay = time.Second
	cfg.RateLimit.RequestsPerSecond = 100
	cfg.RateLimit.Burst = 100

	app := NewServer(Deps{
		Config:    cfg,
		Store:     store,
		Objects:   objects,
		UploadDir: uploadDir,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return &testServer{app: app, store: store, uploadDir: uploadDir}
}

func (s *testServer) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return resp, body
}

func jsonRequest(method, target string, payload interface{}) *http.Request {
	data, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func checkInRequest(t *testing.T, fields map[string]string, fileName, contentType string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("WriteField() error = %v", err)
		}
	}
	if fileName != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename="%s"`, fileName))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("CreatePart() error = %v", err)
		}
		part.Write([]byte("not really a png"))
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/checkins", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func latOffset(meters float64) string {
	return fmt.Sprintf("%.9f", 10+meters/metersPerDegreeLat)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	creds := map[string]string{"name": "Ana", "email": "ana@example.com", "password": "s3cret"}

	resp, body := s.do(t, jsonRequest(http.MethodPost, "/api/register", creds))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", resp.StatusCode, body)
	}

	resp, body = s.do(t, jsonRequest(http.MethodPost, "/api/register", creds))
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), "incorrect email or password") {
		t.Errorf("duplicate register = %d %s", resp.StatusCode, body)
	}

	resp, body = s.do(t, jsonRequest(http.MethodPost, "/api/login", map[string]string{"email": "ana@example.com", "password": "wrong"}))
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), "incorrect email or password") {
		t.Errorf("bad login = %d %s", resp.StatusCode, body)
	}

	resp, body = s.do(t, jsonRequest(http.MethodPost, "/api/login", map[string]string{"email": "ana@example.com", "password": "s3cret"}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, body %s", resp.StatusCode, body)
	}
	if strings.Contains(string(body), "$2a$") {
		t.Fatalf("login response contains the password hash: %s", body)
	}
	var login struct {
		Token string            `json:"token"`
		User  models.PublicUser `json:"user"`
	}
	if err := json.Unmarshal(body, &login); err != nil {
		t.Fatalf("decoding login: %v", err)
	}
	if login.Token == "" || login.User.Email != "ana@example.com" {
		t.Fatalf("login = %+v", login)
	}

	resp, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("users without token status = %d, want 401", resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	resp, body = s.do(t, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("users status = %d, body %s", resp.StatusCode, body)
	}
	var users []map[string]interface{}
	if err := json.Unmarshal(body, &users); err != nil {
		t.Fatalf("decoding users: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("users = %v", users)
	}
	if _, ok := users[0]["password"]; ok {
		t.Error("user listing exposes password")
	}
}

func TestStationEndpoints(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		target string
		want   []string
	}{
		{"/api/stations", []string{"Posto 1 Beach", "Harbor"}},
		{"/api/stations?q=BEA", []string{"Posto 1 Beach"}},
		{"/api/stations?q=lighthouse", []string{}},
		{"/api/postos", []string{"Posto 1 Beach", "Harbor"}},
	}

	for _, tt := range tests {
		resp, body := s.do(t, httptest.NewRequest(http.MethodGet, tt.target, nil))
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d", tt.target, resp.StatusCode)
			continue
		}
		var stations []models.Station
		if err := json.Unmarshal(body, &stations); err != nil {
			t.Fatalf("GET %s: %v (%s)", tt.target, err, body)
		}
		if len(stations) != len(tt.want) {
			t.Errorf("GET %s = %v, want %v", tt.target, stations, tt.want)
			continue
		}
		for i := range tt.want {
			if stations[i].Name != tt.want[i] {
				t.Errorf("GET %s [%d] = %q, want %q", tt.target, i, stations[i].Name, tt.want[i])
			}
		}
	}
}

func TestStationsStoreFailureRendersEmptyList(t *testing.T) {
	s := newTestServer(t)
	s.store.Close()

	resp, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/stations", nil))
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("stations with a dead store = %d %s, want 200 []", resp.StatusCode, body)
	}
}

func TestProximityEndpoint(t *testing.T) {
	s := newTestServer(t)

	target := fmt.Sprintf("/api/stations/Posto%%201%%20Beach/proximity?lat=%s&long=10", latOffset(10))
	resp, body := s.do(t, httptest.NewRequest(http.MethodGet, target, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("proximity status = %d, body %s", resp.StatusCode, body)
	}
	var got models.ProximityResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decoding proximity: %v", err)
	}
	if !got.Admitted || got.Threshold != 50 || got.Station.Name != "Posto 1 Beach" {
		t.Errorf("proximity = %+v", got)
	}

	resp, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/stations/Nowhere/proximity?lat=1&long=1", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown station status = %d, want 404", resp.StatusCode)
	}
}

func TestCheckInFlow(t *testing.T) {
	s := newTestServer(t)

	near := map[string]string{"station": "Posto 1 Beach", "lat": latOffset(10), "long": "10"}
	resp, body := s.do(t, checkInRequest(t, near, "beach.png", "image/png"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("check-in status = %d, body %s", resp.StatusCode, body)
	}
	var created struct {
		Data         models.PhotoLog `json:"data"`
		ResetAfterMs int64           `json:"reset_after_ms"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decoding check-in: %v", err)
	}
	if !strings.HasPrefix(created.Data.ObjectKey, "posto_1_beach_") || !strings.HasSuffix(created.Data.ObjectKey, ".png") {
		t.Errorf("object key = %q", created.Data.ObjectKey)
	}
	if created.ResetAfterMs != 1000 {
		t.Errorf("reset_after_ms = %d, want 1000", created.ResetAfterMs)
	}
	if _, err := os.Stat(filepath.Join(s.uploadDir, "photos", created.Data.ObjectKey)); err != nil {
		t.Errorf("uploaded file missing: %v", err)
	}

	resp, body = s.do(t, httptest.NewRequest(http.MethodGet, created.Data.PhotoURL, nil))
	if resp.StatusCode != http.StatusOK || string(body) != "not really a png" {
		t.Errorf("GET %s = %d %q", created.Data.PhotoURL, resp.StatusCode, body)
	}

	resp, body = s.do(t, httptest.NewRequest(http.MethodGet, "/api/checkins?station=Posto%201%20Beach", nil))
	var logs []models.PhotoLog
	if err := json.Unmarshal(body, &logs); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("list check-ins = %d %s", resp.StatusCode, body)
	}
	if len(logs) != 1 || logs[0].ID != created.Data.ID {
		t.Errorf("check-ins = %+v", logs)
	}
}

func TestCheckInRejections(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name       string
		fields     map[string]string
		file       string
		wantStatus int
	}{
		{"too far", map[string]string{"station": "Posto 1 Beach", "lat": latOffset(60), "long": "10"}, "a.jpg", http.StatusForbidden},
		{"permission denied", map[string]string{"station": "Posto 1 Beach", "geo_error": "denied"}, "a.jpg", http.StatusForbidden},
		{"location timeout", map[string]string{"station": "Posto 1 Beach", "geo_error": "timeout"}, "a.jpg", http.StatusRequestTimeout},
		{"missing coordinates", map[string]string{"station": "Posto 1 Beach"}, "a.jpg", http.StatusBadRequest},
		{"unknown station", map[string]string{"station": "Nowhere", "lat": "10", "long": "10"}, "a.jpg", http.StatusNotFound},
		{"no photo is a no-op", map[string]string{"station": "Posto 1 Beach", "geo_error": "denied"}, "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := s.do(t, checkInRequest(t, tt.fields, tt.file, "image/jpeg"))
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", resp.StatusCode, tt.wantStatus, body)
			}
		})
	}

	logs, err := s.store.ListPhotoLogs(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("ListPhotoLogs() error = %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("rejected check-ins were logged: %+v", logs)
	}
	entries, _ := os.ReadDir(filepath.Join(s.uploadDir, "photos"))
	if len(entries) != 0 {
		t.Errorf("rejected check-ins uploaded %d files", len(entries))
	}
}

func TestPreventionFlow(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, jsonRequest(http.MethodPost, "/api/prevention", map[string]string{"morning_prev": "3"}))
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), `"redirect":"/stations"`) {
		t.Errorf("prevention without station = %d %s", resp.StatusCode, body)
	}

	sub := models.PreventionSubmission{
		Station:            &models.Station{Name: "Harbor", Latitude: -22.98, Longitude: -43.19},
		MorningPrev:        "12",
		AfternoonPrev:      "4",
		MorningJellyfish:   "0",
		AfternoonJellyfish: "2",
	}
	resp, body = s.do(t, jsonRequest(http.MethodPost, "/api/prevention", sub))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("prevention status = %d, body %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), `"redirect":"/stations"`) {
		t.Errorf("prevention success should return to station selection, body %s", body)
	}

	token := registerAndLogin(t, s)
	req := httptest.NewRequest(http.MethodGet, "/api/prevention/export", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, body = s.do(t, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d, body %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/vnd.openxmlformats") {
		t.Errorf("export content type = %q", ct)
	}
	// xlsx files are zip archives
	if !bytes.HasPrefix(body, []byte("PK")) {
		t.Error("export body is not an xlsx archive")
	}

	resp, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/prevention/export", nil))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("export without token status = %d, want 401", resp.StatusCode)
	}
}

func registerAndLogin(t *testing.T, s *testServer) string {
	t.Helper()
	creds := map[string]string{"name": "Staff", "email": "staff@example.com", "password": "pw"}
	if resp, body := s.do(t, jsonRequest(http.MethodPost, "/api/register", creds)); resp.StatusCode != http.StatusCreated {
		t.Fatalf("register = %d %s", resp.StatusCode, body)
	}
	_, body := s.do(t, jsonRequest(http.MethodPost, "/api/login", creds))
	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &login); err != nil || login.Token == "" {
		t.Fatalf("login = %s", body)
	}
	return login.Token
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp, body := s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"status":"ok"`) {
		t.Errorf("health = %d %s", resp.StatusCode, body)
	}

	resp, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d", resp.StatusCode)
	}
}

func TestSeedStations(t *testing.T) {
	s := newTestServer(t)
	path := filepath.Join(t.TempDir(), "stations.json")
	if err := os.WriteFile(path, []byte(`[{"name":"Lighthouse","latitude":1.5,"longitude":2.5},{"name":"Harbor","latitude":3,"longitude":4}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := seedStations(context.Background(), s.store, path)
	if err != nil || n != 2 {
		t.Fatalf("seedStations() = %d, %v", n, err)
	}
	stations, _ := s.store.ListStations(context.Background(), "")
	if len(stations) != 3 {
		t.Errorf("stations after seed = %+v", stations)
	}
	harbor, _ := s.store.ListStations(context.Background(), "harbor")
	if len(harbor) != 1 || harbor[0].Latitude != 3 {
		t.Errorf("Harbor not updated by seed: %+v", harbor)
	}
}
