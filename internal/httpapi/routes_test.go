package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kiliankoe/duelhost/internal/combat"
	"github.com/kiliankoe/duelhost/internal/config"
	"github.com/kiliankoe/duelhost/internal/game"
)

type fakeConns struct {
	counts    map[string]int
	forgotten []string
}

func (f *fakeConns) Connections(id string) int { return f.counts[id] }
func (f *fakeConns) Forget(id string)          { f.forgotten = append(f.forgotten, id) }

func newRouter(cfg config.Config) (*gin.Engine, *game.Registry, *fakeConns) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	reg := game.NewRegistry(game.Options{})
	conns := &fakeConns{counts: map[string]int{}}
	Register(r, reg, conns, cfg)
	return r, reg, conns
}

func do(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, reg, _ := newRouter(config.Config{})
	reg.GetOrCreate("x")
	w := do(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		OK       bool `json:"ok"`
		Sessions int  `json:"sessions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.OK || body.Sessions != 1 {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestRules(t *testing.T) {
	r, _, _ := newRouter(config.Config{EnergyRegen: 7, TurnDurationMs: 5000})
	w := do(r, httptest.NewRequest(http.MethodGet, "/api/rules", nil))
	var body struct {
		Rules          map[combat.ActionKind]combat.Rule `json:"rules"`
		Regen          int                               `json:"regen"`
		TurnDurationMs int                               `json:"turnDurationMs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Regen != 7 || body.TurnDurationMs != 5000 {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
	if body.Rules[combat.ActionDefend].Speed != 3 || body.Rules[combat.ActionAttack].Damage != 25 {
		t.Fatalf("unexpected rules %+v", body.Rules)
	}
}

func TestSessionRoutes(t *testing.T) {
	r, reg, conns := newRouter(config.Config{})
	sess := reg.GetOrCreate("duel")
	_, _ = sess.Join("alice")
	conns.counts["duel"] = 2

	w := do(r, httptest.NewRequest(http.MethodGet, "/api/sessions/duel", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var one struct {
		Session     game.Snapshot `json:"session"`
		Connections int           `json:"connections"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &one); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if one.Session.SessionID != "duel" || one.Connections != 2 || len(one.Session.Players) != 1 {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/sessions/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	var list struct {
		Sessions []map[string]any `json:"sessions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Sessions) != 1 || list.Sessions[0]["sessionId"] != "duel" {
		t.Fatalf("unexpected list %s", w.Body.String())
	}
}

func TestAdminDelete(t *testing.T) {
	r, reg, conns := newRouter(config.Config{AdminUser: "admin", AdminPass: "secret"})
	reg.GetOrCreate("duel")

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/sessions/duel", nil)
	if w := do(r, req); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/admin/sessions/duel", nil)
	req.SetBasicAuth("admin", "secret")
	if w := do(r, req); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if reg.Len() != 0 {
		t.Fatal("expected session to be removed")
	}
	if len(conns.forgotten) != 1 || conns.forgotten[0] != "duel" {
		t.Fatalf("expected connections to be forgotten, got %v", conns.forgotten)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/admin/sessions/duel", nil)
	req.SetBasicAuth("admin", "secret")
	if w := do(r, req); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing session, got %d", w.Code)
	}
}

func TestAdminRoutesOffWithoutCredentials(t *testing.T) {
	r, reg, _ := newRouter(config.Config{})
	reg.GetOrCreate("duel")
	w := do(r, httptest.NewRequest(http.MethodDelete, "/api/admin/sessions/duel", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when admin is disabled, got %d", w.Code)
	}
	if reg.Len() != 1 {
		t.Fatal("session must survive")
	}
}

func TestFrontendFallback(t *testing.T) {
	r, _, _ := newRouter(config.Config{})
	Frontend(r, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("client"))
	}))

	w := do(r, httptest.NewRequest(http.MethodGet, "/play/duel", nil))
	if w.Code != http.StatusOK || w.Body.String() != "client" {
		t.Fatalf("expected client page, got %d %q", w.Code, w.Body.String())
	}
	w = do(r, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown api path, got %d", w.Code)
	}
	w = do(r, httptest.NewRequest(http.MethodPost, "/play/duel", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for POST, got %d", w.Code)
	}
}
