package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"

	"github.com/SmitUplenchwar2687/Tollgate/internal/admission"
	"github.com/SmitUplenchwar2687/Tollgate/internal/bundle"
	"github.com/SmitUplenchwar2687/Tollgate/internal/catalog"
	"github.com/SmitUplenchwar2687/Tollgate/internal/clock"
	"github.com/SmitUplenchwar2687/Tollgate/internal/events"
	"github.com/SmitUplenchwar2687/Tollgate/internal/policy"
	"github.com/SmitUplenchwar2687/Tollgate/internal/promo"
	"github.com/SmitUplenchwar2687/Tollgate/internal/recorder"
	"github.com/SmitUplenchwar2687/Tollgate/internal/store"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	srv   *Server
	clock *clock.Virtual
	hub   *Hub
	rec   *recorder.Recorder
}

func testLimits(route string) admission.Limit {
	if route == RoutePromo {
		return admission.Limit{Window: time.Minute, MaxRequests: 2}
	}
	return admission.Limit{Window: time.Minute, MaxRequests: 5}
}

func testSnapshot(t *testing.T) *catalog.Snapshot {
	t.Helper()
	snap, err := catalog.NewSnapshot(catalog.Document{
		Version: "test-v1",
		PromoCodes: []promo.Code{
			{Code: "TEN", Type: promo.TypePercentage, Value: 10, MinPurchase: 5000, IsActive: true},
		},
		Bundles: []bundle.Bundle{{
			ID:   "estate",
			Name: "Estate Plan",
			Products: []bundle.Product{
				{ProductID: "will", Name: "Last Will", Price: 20000, Required: true},
				{ProductID: "poa", Name: "Power of Attorney", Price: 15000, Required: true},
			},
			DiscountType:  bundle.DiscountPercentage,
			DiscountValue: 20,
			IsActive:      true,
		}},
	}, epoch)
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

func newTestEnv(t *testing.T, holder *catalog.Holder) *testEnv {
	t.Helper()
	vc := clock.NewVirtual(epoch)
	logger := zaptest.NewLogger(t)

	mem, err := store.NewMemoryStore(&store.MemoryConfig{Clock: vc})
	if err != nil {
		t.Fatal(err)
	}
	ap, err := admission.NewPolicy(mem, vc)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ap.Close() })

	hub := NewHub(logger)
	svc, err := policy.NewService(policy.Config{
		Admitter:  ap,
		Clock:     vc,
		Logger:    logger,
		Publisher: events.Multi{hub, events.NewLogPublisher(logger)},
	})
	if err != nil {
		t.Fatal(err)
	}

	if holder == nil {
		holder = catalog.NewStaticHolder(testSnapshot(t))
	}
	rec := recorder.New(nil)
	srv := New("127.0.0.1:0", svc, ap, holder, testLimits, Options{
		Hub:      hub,
		Recorder: rec,
		Logger:   logger,
		Clock:    vc,
	})
	return &testEnv{srv: srv, clock: vc, hub: hub, rec: rec}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.RemoteAddr = "192.0.2.10:41234"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
}

const quoteBody = `{"items":[{"product_id":"guide","name":"Guide","unit_price":10000,"quantity":1}],"promo_code":"ten"}`

func TestServer_Health(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]any
	decode(t, w, &body)
	if body["status"] != "ok" || body["catalog_version"] != "test-v1" {
		t.Errorf("body = %v", body)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestServer_RequestIDPropagates(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodGet, "/health", "", map[string]string{"X-Request-ID": "abc-123"})
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}

func TestServer_Quote(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodPost, "/api/v1/quote", quoteBody, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var res policy.Result
	decode(t, w, &res)
	if res.Subtotal != 10000 || res.Discount != 1000 || res.Total != 9000 {
		t.Errorf("subtotal/discount/total = %d/%d/%d", res.Subtotal, res.Discount, res.Total)
	}
	if res.Promo == nil || !res.Promo.Valid {
		t.Errorf("promo = %+v", res.Promo)
	}
	if got := w.Header().Get("X-RateLimit-Limit"); got != "5" {
		t.Errorf("X-RateLimit-Limit = %q, want 5", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "4" {
		t.Errorf("X-RateLimit-Remaining = %q, want 4", got)
	}
}

func TestServer_QuoteWithBundle(t *testing.T) {
	env := newTestEnv(t, nil)
	body := `{"items":[
		{"product_id":"will","unit_price":20000,"quantity":1},
		{"product_id":"poa","unit_price":15000,"quantity":1}
	]}`
	w := env.do(t, http.MethodPost, "/api/v1/quote", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res policy.Result
	decode(t, w, &res)
	if res.Bundle == nil || res.Bundle.BundleID != "estate" || res.Discount != 7000 {
		t.Errorf("bundle = %+v discount = %d", res.Bundle, res.Discount)
	}
}

func TestServer_RateLimited(t *testing.T) {
	env := newTestEnv(t, nil)
	body := `{"code":"TEN","items":[{"product_id":"guide","unit_price":10000,"quantity":1}]}`

	for i := 0; i < 2; i++ {
		if w := env.do(t, http.MethodPost, "/api/v1/promo/validate", body, nil); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, w.Code)
		}
	}
	env.clock.Advance(20 * time.Second)

	w := env.do(t, http.MethodPost, "/api/v1/promo/validate", body, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "40" {
		t.Errorf("Retry-After = %q, want 40", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}

	// Other routes keep their own counters.
	if w := env.do(t, http.MethodPost, "/api/v1/quote", quoteBody, nil); w.Code != http.StatusOK {
		t.Errorf("quote status = %d, want 200", w.Code)
	}

	env.clock.Advance(40 * time.Second)
	if w := env.do(t, http.MethodPost, "/api/v1/promo/validate", body, nil); w.Code != http.StatusOK {
		t.Errorf("after window: status = %d, want 200", w.Code)
	}
}

func TestServer_IdentifierFromForwardedFor(t *testing.T) {
	env := newTestEnv(t, nil)
	body := `{"code":"TEN","items":[]}`

	for i := 0; i < 2; i++ {
		env.do(t, http.MethodPost, "/api/v1/promo/validate", body, map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"})
	}
	w := env.do(t, http.MethodPost, "/api/v1/promo/validate", body, map[string]string{"X-Forwarded-For": "203.0.113.7"})
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("same first hop: status = %d, want 429", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/v1/promo/validate", body, map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.1"})
	if w.Code != http.StatusOK {
		t.Errorf("different client: status = %d, want 200", w.Code)
	}

	records := env.rec.Records()
	if len(records) != 4 || records[0].Key != "promo:203.0.113.7" || records[3].Key != "promo:198.51.100.1" {
		t.Errorf("recorded keys = %+v", records)
	}
}

func TestClientAddress(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": " 203.0.113.7 , 10.0.0.1"}, "192.0.2.1:1", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "192.0.2.1:1", "198.51.100.2"},
		{"remote host", nil, "192.0.2.1:5555", "192.0.2.1"},
		{"remote without port", nil, "192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := clientAddress(r); got != tt.want {
				t.Errorf("clientAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestServer_BadRequests(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name, path, body string
	}{
		{"malformed json", "/api/v1/quote", `{"items":`},
		{"negative price", "/api/v1/quote", `{"items":[{"product_id":"a","unit_price":-5,"quantity":1}]}`},
		{"missing code", "/api/v1/promo/validate", `{"items":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, tt.path, tt.body, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
			}
		})
	}
}

func TestServer_PromoValidate(t *testing.T) {
	env := newTestEnv(t, nil)
	body := `{"code":"TEN","items":[{"product_id":"guide","unit_price":4000,"quantity":1}]}`

	w := env.do(t, http.MethodPost, "/api/v1/promo/validate", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res struct {
		Valid   bool   `json:"valid"`
		Reason  string `json:"reason"`
		Message string `json:"message"`
	}
	decode(t, w, &res)
	if res.Valid || res.Reason != string(promo.ReasonMinimumNotMet) {
		t.Errorf("got %+v, want minimum_not_met", res)
	}
	if !strings.Contains(res.Message, "$50.00") {
		t.Errorf("message = %q, want the minimum amount", res.Message)
	}
}

func TestServer_Bundles(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/v1/bundles/best", `{"product_ids":["will"]}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var best struct {
		Best        *bundle.Calculation  `json:"best"`
		Suggestions []bundle.Calculation `json:"suggestions"`
	}
	decode(t, w, &best)
	if best.Best != nil {
		t.Errorf("best = %+v, want none", best.Best)
	}
	if len(best.Suggestions) != 1 || best.Suggestions[0].MissingProducts[0] != "Power of Attorney" {
		t.Errorf("suggestions = %+v", best.Suggestions)
	}

	w = env.do(t, http.MethodGet, "/api/v1/bundles", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list struct {
		Bundles []bundle.Calculation `json:"bundles"`
	}
	decode(t, w, &list)
	if len(list.Bundles) != 1 || list.Bundles[0].Savings != 7000 || list.Bundles[0].SavingsPercentage != 20 {
		t.Errorf("bundles = %+v", list.Bundles)
	}
	if w.Header().Get("X-RateLimit-Limit") != "5" {
		t.Error("listing should be admission controlled")
	}
}

func TestServer_ListBundlesRateLimited(t *testing.T) {
	env := newTestEnv(t, nil)
	for i := 0; i < 5; i++ {
		env.do(t, http.MethodGet, "/api/v1/bundles", "", nil)
	}
	w := env.do(t, http.MethodGet, "/api/v1/bundles", "", nil)
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "60" {
		t.Errorf("status = %d Retry-After = %q", w.Code, w.Header().Get("Retry-After"))
	}
}

func TestServer_NoCatalog(t *testing.T) {
	env := newTestEnv(t, catalog.NewHolder(nil, nil))

	w := env.do(t, http.MethodPost, "/api/v1/quote", quoteBody, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	w = env.do(t, http.MethodGet, "/health", "", nil)
	var body map[string]any
	decode(t, w, &body)
	if body["status"] != "degraded" {
		t.Errorf("health = %v", body)
	}
}

func TestServer_NotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	if w := env.do(t, http.MethodGet, "/nonexistent", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestServer_WebSocketStream(t *testing.T) {
	env := newTestEnv(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go env.srv.StartOnListener(ln)
	defer env.srv.Shutdown(context.Background())

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if env.hub.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", env.hub.ClientCount())
	}

	resp, err := http.Post("http://"+ln.Addr().String()+"/api/v1/quote", "application/json", strings.NewReader(quoteBody))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var e events.Event
	if err := conn.ReadJSON(&e); err != nil {
		t.Fatalf("reading event: %v", err)
	}
	if e.Type != events.TypeEvaluation || e.Status != "ok" || e.Discount != 1000 {
		t.Errorf("event = %+v", e)
	}
	if !strings.HasPrefix(e.Identifier, "quote:") {
		t.Errorf("identifier = %q", e.Identifier)
	}
}
