package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/ttahub-resources-backend/internal/data/repos"
	"github.com/yungbote/ttahub-resources-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ttahub-resources-backend/internal/domain"
	httpH "github.com/yungbote/ttahub-resources-backend/internal/http/handlers"
	"github.com/yungbote/ttahub-resources-backend/internal/observability"
	"github.com/yungbote/ttahub-resources-backend/internal/services"
)

type countingWaker struct {
	mu    sync.Mutex
	woken int
}

func (w *countingWaker) Wake(ctx context.Context, jobType string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.woken++
	return nil
}

func (w *countingWaker) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.woken
}

type apiFixture struct {
	router *gin.Engine
	db     *gorm.DB
	set    repos.Set
	waker  *countingWaker
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)
	set := repos.NewSet(db, log)
	waker := &countingWaker{}
	jobs := services.NewJobService(log, set.JobRuns, waker, 3)
	engine := services.NewEngine(log, set, jobs)
	router := NewRouter(RouterConfig{
		Log:             log,
		Metrics:         observability.New(),
		ResourceHandler: httpH.NewResourceHandler(log, db, engine.Service, jobs),
		HealthHandler:   httpH.NewHealthHandler(db),
	})
	return &apiFixture{router: router, db: db, set: set, waker: waker}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "7")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	out := map[string]any{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, out
}

func errorCode(out map[string]any) string {
	e, _ := out["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestSaveAndListParentResources(t *testing.T) {
	f := newAPI(t)
	body := map[string]any{
		"fields": map[string]string{
			"context":         "see https://eclkc.ohs.acf.hhs.gov/a and http://example.org/b.",
			"additionalNotes": "again http://example.org/b",
		},
		"resources": []string{"https://explicit.org/x"},
	}

	rec, out := f.do(t, stdhttp.MethodPut, "/api/parents/report/11/resources", body)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("save: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	if out["created"].(float64) != 3 || out["enqueued"].(float64) != 3 {
		t.Fatalf("save counts: got=%v", out)
	}
	if f.waker.count() == 0 {
		t.Fatalf("expected worker wake after commit")
	}
	list := out["resources"].([]any)
	if len(list) != 3 {
		t.Fatalf("resources: want=3 got=%d", len(list))
	}

	wakes := f.waker.count()
	rec, out = f.do(t, stdhttp.MethodPut, "/api/parents/report/11/resources", map[string]any{"fields": body["fields"]})
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("resave: got=%d", rec.Code)
	}
	if out["created"].(float64) != 0 || out["removed"].(float64) != 0 || out["enqueued"].(float64) != 0 {
		t.Fatalf("resave should be a no-op: got=%v", out)
	}
	if f.waker.count() != wakes {
		t.Fatalf("no new jobs, no wake: want=%d got=%d", wakes, f.waker.count())
	}

	rec, out = f.do(t, stdhttp.MethodGet, "/api/parents/report/11/resources", nil)
	if rec.Code != stdhttp.StatusOK || len(out["resources"].([]any)) != 3 {
		t.Fatalf("list: code=%d out=%v", rec.Code, out)
	}
	first := out["resources"].([]any)[0].(map[string]any)
	if _, ok := first["onAR"]; ok {
		t.Fatalf("report parents carry no flags: got=%v", first)
	}
}

func TestSaveRejectsInvalidInput(t *testing.T) {
	f := newAPI(t)
	cases := []struct {
		name string
		path string
		body any
		code int
	}{
		{name: "unknown parent", path: "/api/parents/widget/1/resources", body: map[string]any{}, code: stdhttp.StatusBadRequest},
		{name: "bad id", path: "/api/parents/report/zero/resources", body: map[string]any{}, code: stdhttp.StatusBadRequest},
		{name: "field not tracked", path: "/api/parents/goal/1/resources", body: map[string]any{"fields": map[string]string{"context": "x"}}, code: stdhttp.StatusBadRequest},
		{name: "session owns files only", path: "/api/parents/session/1/resources", body: map[string]any{}, code: stdhttp.StatusBadRequest},
	}
	for _, tc := range cases {
		rec, _ := f.do(t, stdhttp.MethodPut, tc.path, tc.body)
		if rec.Code != tc.code {
			t.Fatalf("%s: want=%d got=%d body=%s", tc.name, tc.code, rec.Code, rec.Body.String())
		}
	}
}

func TestDestroyParentResources(t *testing.T) {
	f := newAPI(t)
	rec, _ := f.do(t, stdhttp.MethodPut, "/api/parents/nextStep/3/resources", map[string]any{
		"fields": map[string]string{"note": "http://only.org/page"},
	})
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("save: got=%d body=%s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(stdhttp.MethodDelete, "/api/parents/nextStep/3/resources", nil)
	del := httptest.NewRecorder()
	f.router.ServeHTTP(del, req)
	if del.Code != stdhttp.StatusOK {
		t.Fatalf("delete without body: got=%d body=%s", del.Code, del.Body.String())
	}
	var out map[string]any
	_ = json.Unmarshal(del.Body.Bytes(), &out)
	if out["removed"].(float64) != 1 || out["resourcesSwept"].(float64) != 1 {
		t.Fatalf("destroy counts: got=%v", out)
	}
}

func TestResourceEndpoints(t *testing.T) {
	f := newAPI(t)
	rec, _ := f.do(t, stdhttp.MethodGet, "/api/resources/999", nil)
	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("missing resource: want=404 got=%d", rec.Code)
	}

	f.do(t, stdhttp.MethodPut, "/api/parents/goal/5/resources", map[string]any{"resources": []string{"http://old.org/a"}})
	var res types.Resource
	if err := f.db.First(&res).Error; err != nil {
		t.Fatalf("load resource: %v", err)
	}

	path := "/api/resources/" + jsonNumber(res.ID)
	rec, out := f.do(t, stdhttp.MethodPatch, path, map[string]any{"url": "HTTP://New.org/b"})
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("patch: got=%d body=%s", rec.Code, rec.Body.String())
	}
	got := out["resource"].(map[string]any)
	if got["url"] != "http://new.org/b" || got["domain"] != "new.org" {
		t.Fatalf("patched resource: got=%v", got)
	}

	rec, out = f.do(t, stdhttp.MethodPatch, path, map[string]any{"url": "not a url"})
	if rec.Code != stdhttp.StatusBadRequest || errorCode(out) != "invalid_argument" {
		t.Fatalf("bad url: code=%d out=%v", rec.Code, out)
	}
}

func TestStatusSyncMissingReport(t *testing.T) {
	f := newAPI(t)
	rec, out := f.do(t, stdhttp.MethodPost, "/api/reports/404/status-sync", nil)
	if rec.Code != stdhttp.StatusNotFound || errorCode(out) != "not_found" {
		t.Fatalf("missing report: code=%d out=%v", rec.Code, out)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newAPI(t)
	rec, _ := f.do(t, stdhttp.MethodGet, "/healthcheck", nil)
	if rec.Code != stdhttp.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("health: code=%d body=%q", rec.Code, rec.Body.String())
	}
	rec, _ = f.do(t, stdhttp.MethodGet, "/metrics", nil)
	if rec.Code != stdhttp.StatusOK || !strings.Contains(rec.Body.String(), "rie_api_requests_total") {
		t.Fatalf("metrics: code=%d body=%s", rec.Code, rec.Body.String())
	}
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
