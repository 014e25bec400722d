package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jmoiron/sqlx"

	"backoffice/internal/config"
	"backoffice/internal/http/handlers"
	"backoffice/internal/repos"
	"backoffice/internal/search"
)

// Seeded accounts; every password is Passw0rd!.
const (
	sidCenter  = "sid-center"
	sidSellerA = "sid-seller-a"
	sidSellerB = "sid-seller-b"
	sidAlice   = "sid-alice"
	sidBob     = "sid-bob"
)

type testApp struct {
	app  *fiber.App
	db   *sqlx.DB
	idx  *search.MemoryIndex
	deps *handlers.Deps
}

// newTestApp builds the API over an in-memory store with the demo catalogue.
// mw is installed ahead of the routes.
func newTestApp(t *testing.T, mw ...fiber.Handler) *testApp {
	t.Helper()
	db, err := repos.OpenDB("sqlite", ":memory:", true)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	users := repos.NewUserRepo(db)
	for sid, uid := range map[string]string{
		sidCenter: "u-center", sidSellerA: "u-seller-a", sidSellerB: "u-seller-b",
		sidAlice: "u-alice", sidBob: "u-bob",
	} {
		if err := users.BindSession(sid, uid); err != nil {
			t.Fatalf("bind session: %v", err)
		}
	}

	idx := search.NewMemoryIndex()
	deps := handlers.NewDeps(db, idx, config.IndexConfig{Timeout: time.Second, ResyncWorkers: 2}, nil)

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB
	app.Use(requestid.New())
	for _, h := range mw {
		app.Use(h)
	}
	deps.Routes(app)
	return &testApp{app: app, db: db, idx: idx, deps: deps}
}

// call sends body as JSON (when non-nil) with the given session and decodes
// the response into a map.
func (ta *testApp) call(t *testing.T, method, path, sid string, body any) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp.StatusCode, out
}

func extractCookie(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

type logEntry struct {
	Level  string                 `json:"level"`
	Action string                 `json:"action"`
	UserID string                 `json:"user_id"`
	Err    string                 `json:"err"`
	Fields map[string]interface{} `json:"fields"`
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// captureLogs replaces the standard logger output while fn runs.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedWriter{w: &buf, mu: &mu})
	log.SetFlags(0) // remove timestamps to make JSON parseable
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}
