package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"missionboard/internal/config"
	"missionboard/internal/db"
	"missionboard/internal/domain"
	"missionboard/internal/engine"
	"missionboard/internal/migrate"
	"missionboard/internal/notify"
	"missionboard/internal/ratelimit"
	"missionboard/internal/repo"
)

const testJWTSecret = "test-secret"

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, limiter ratelimit.Limiter) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default())
	e.Notify = notify.Discard{}
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v1",
		Auth: AuthConfig{
			JWTSecret:              testJWTSecret,
			AllowLegacyActorHeader: true,
		},
		Limiter: limiter,
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func seedUser(t *testing.T, e engine.Engine, id, email string, userRoles ...string) {
	t.Helper()
	if _, err := e.CreateUser(context.Background(), engine.UserCreateOptions{
		ID:    id,
		Email: email,
		Roles: userRoles,
	}); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func asUser(id, activeRole string) map[string]string {
	h := map[string]string{"X-Actor-Id": id}
	if activeRole != "" {
		h["X-Active-Role"] = activeRole
	}
	return h
}

func decodeEnvelope(t *testing.T, data []byte) apiErrorBody {
	t.Helper()
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v (%s)", err, string(data))
	}
	return envelope.Error
}

func TestRequestsRequireAuth(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/missions", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	if e := decodeEnvelope(t, data); e.Code != "unauthorized" {
		t.Fatalf("code %q want unauthorized", e.Code)
	}

	// Health stays open.
	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
}

func TestMissionLifecycleOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()
	client := srv.Client()

	seedUser(t, srv.Engine, "adv-1", "adv@example.com", domain.RoleAdvertiser)
	seedUser(t, srv.Engine, "mis-1", "mis@example.com", domain.RoleMissionary)
	seedUser(t, srv.Engine, "adm-1", "adm@example.com", domain.RoleAdmin)

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/missions", map[string]any{
		"title":     "Translate the landing page",
		"space":     "pro",
		"slots_max": 2,
		"base_xp":   100,
		"bonus_xp":  20,
	}, asUser("adv-1", domain.RoleAdvertiser))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create mission status %d: %s", res.StatusCode, string(data))
	}
	var mission domain.Mission
	if err := json.Unmarshal(data, &mission); err != nil {
		t.Fatalf("unmarshal mission: %v", err)
	}
	if mission.Status != domain.MissionPending {
		t.Fatalf("status %q want pending", mission.Status)
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v1/missions/"+mission.ID+"/approve", nil, asUser("adm-1", ""))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("approve status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/missions/"+mission.ID+"/apply", map[string]any{
		"message": "I can start today",
	}, asUser("mis-1", domain.RoleMissionary))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("apply status %d: %s", res.StatusCode, string(data))
	}

	// Second application on the same mission is a conflict, reported as 400.
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/missions/"+mission.ID+"/apply", nil, asUser("mis-1", domain.RoleMissionary))
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("reapply status %d: %s", res.StatusCode, string(data))
	}
	if e := decodeEnvelope(t, data); e.Code != "conflict" {
		t.Fatalf("reapply code %q want conflict", e.Code)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/submissions", map[string]any{
		"mission_id": mission.ID,
		"proof_url":  "https://example.com/proof",
	}, asUser("mis-1", domain.RoleMissionary))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("submit status %d: %s", res.StatusCode, string(data))
	}
	var sub domain.Submission
	if err := json.Unmarshal(data, &sub); err != nil {
		t.Fatalf("unmarshal submission: %v", err)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/submissions/"+sub.ID+"/accept", nil, asUser("adv-1", domain.RoleAdvertiser))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("accept status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/users/mis-1", nil, asUser("mis-1", ""))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("profile status %d: %s", res.StatusCode, string(data))
	}
	var profile engine.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		t.Fatalf("unmarshal profile: %v", err)
	}
	if profile.User.XP != 120 || profile.User.XPPro != 120 {
		t.Fatalf("xp=%d xpPro=%d want 120/120", profile.User.XP, profile.User.XPPro)
	}

	// Accepting twice never grants twice.
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/submissions/"+sub.ID+"/accept", nil, asUser("adv-1", domain.RoleAdvertiser))
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("re-accept status %d: %s", res.StatusCode, string(data))
	}
	if e := decodeEnvelope(t, data); e.Code != "conflict" {
		t.Fatalf("re-accept code %q want conflict", e.Code)
	}
}

func TestRefuseReasonValidated(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()
	client := srv.Client()

	seedUser(t, srv.Engine, "adv-1", "adv@example.com", domain.RoleAdvertiser)
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/submissions/sub-x/refuse", map[string]any{
		"reason": "x",
	}, asUser("adv-1", domain.RoleAdvertiser))
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	if e := decodeEnvelope(t, data); e.Code != "bad_request" {
		t.Fatalf("code %q want bad_request", e.Code)
	}
}

func TestJWTPrincipal(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()
	client := srv.Client()

	seedUser(t, srv.Engine, "mis-1", "mis@example.com", domain.RoleMissionary)

	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "mis-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{domain.RoleMissionary},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/me", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	var profile engine.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		t.Fatalf("unmarshal profile: %v", err)
	}
	if profile.User.ID != "mis-1" {
		t.Fatalf("user id %q want mis-1", profile.User.ID)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/me", nil, map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token status %d: %s", res.StatusCode, string(data))
	}
}

func TestAPIKeyPrincipal(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()
	client := srv.Client()

	seedUser(t, srv.Engine, "adv-1", "adv@example.com", domain.RoleAdvertiser)
	rawKey := "mb_live_0123456789abcdef"
	if err := srv.Engine.Repo.InsertAPIKey(context.Background(), nil, domain.APIKey{
		ID:        "key-1",
		UserID:    "adv-1",
		Name:      "ci",
		KeyHash:   repo.HashAPIKey(rawKey),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		t.Fatalf("insert api key: %v", err)
	}

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/me", nil, map[string]string{
		"X-Api-Key": rawKey,
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	var profile engine.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		t.Fatalf("unmarshal profile: %v", err)
	}
	if profile.User.ID != "adv-1" {
		t.Fatalf("user id %q want adv-1", profile.User.ID)
	}
}

func TestMutationRateLimit(t *testing.T) {
	srv, cleanup := newTestServer(t, ratelimit.NewWindow(1, time.Minute))
	defer cleanup()
	client := srv.Client()

	seedUser(t, srv.Engine, "mis-1", "mis@example.com", domain.RoleMissionary)
	seedUser(t, srv.Engine, "mis-2", "mis2@example.com", domain.RoleMissionary)

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/users/mis-2/follow", nil, asUser("mis-1", ""))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("first follow status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/users/mis-2/follow", nil, asUser("mis-1", ""))
	if res.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second follow status %d: %s", res.StatusCode, string(data))
	}
	if e := decodeEnvelope(t, data); e.Code != "rate_limited" {
		t.Fatalf("code %q want rate_limited", e.Code)
	}

	// Reads stay unthrottled.
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/me/following", nil, asUser("mis-1", ""))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, string(data))
	}
}

func TestActiveRoleEnforced(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()
	client := srv.Client()

	seedUser(t, srv.Engine, "both-1", "both@example.com", domain.RoleAdvertiser, domain.RoleMissionary)

	// Posting a mission while acting as missionary is forbidden even though
	// the account holds the advertiser role.
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/missions", map[string]any{
		"title":     "Mow the community garden",
		"space":     "solidaire",
		"slots_max": 1,
	}, asUser("both-1", domain.RoleMissionary))
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	if e := decodeEnvelope(t, data); e.Code != "forbidden" {
		t.Fatalf("code %q want forbidden", e.Code)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/missions", map[string]any{
		"title":     "Mow the community garden",
		"space":     "solidaire",
		"slots_max": 1,
	}, asUser("both-1", domain.RoleAdvertiser))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
}

func TestOpenAPIServedConcurrently(t *testing.T) {
	srv, cleanup := newTestServer(t, nil)
	defer cleanup()
	client := srv.Client()

	seedUser(t, srv.Engine, "adv-1", "adv@example.com", domain.RoleAdvertiser)

	const n = 8
	bodies := make([][]byte, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/openapi.json", nil)
			if err != nil {
				t.Errorf("build request: %v", err)
				return
			}
			req.Header.Set("X-Actor-Id", "adv-1")
			res, err := client.Do(req)
			if err != nil {
				t.Errorf("get openapi: %v", err)
				return
			}
			defer res.Body.Close()
			if res.StatusCode != http.StatusOK {
				t.Errorf("status %d", res.StatusCode)
				return
			}
			bodies[i], _ = io.ReadAll(res.Body)
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		if !bytes.Equal(bodies[0], bodies[i]) {
			t.Fatalf("response %d differs from response 0", i)
		}
	}
}
