package music

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apphttp "nurture_backend/internal/http"
	"nurture_backend/internal/musicgen"
	"nurture_backend/platform/httpkit"
	"nurture_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type recordingQueue struct {
	ready []musicgen.TrackReady
}

func (q *recordingQueue) EnqueueTrackReady(_ context.Context, ready musicgen.TrackReady) error {
	q.ready = append(q.ready, ready)
	return nil
}

func callbackRouter(queue TrackQueue) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(nil, queue, logger.Nop())
	r := gin.New()
	r.POST("/api/v1/music/callback", h.Callback)
	return r
}

func postCallback(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/music/callback", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCallbackQueuesCompletedTrack(t *testing.T) {
	queue := &recordingQueue{}
	w := postCallback(callbackRouter(queue), `{"code":200,"msg":"ok","data":{"callbackType":"complete","task_id":"abc","data":[{"audio_url":"https://cdn.example/a.mp3"}]}}`)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if len(queue.ready) != 1 || queue.ready[0].TaskID != "abc" || queue.ready[0].AudioURL != "https://cdn.example/a.mp3" {
		t.Fatalf("unexpected queued tracks %+v", queue.ready)
	}
}

func TestCallbackIgnoresIntermediateStages(t *testing.T) {
	queue := &recordingQueue{}
	w := postCallback(callbackRouter(queue), `{"code":200,"data":{"callbackType":"first","task_id":"abc","data":[{"audio_url":"https://cdn.example/a.mp3"}]}}`)

	if w.Code != http.StatusOK || len(queue.ready) != 0 {
		t.Fatalf("expected ignored callback, got %d and %d queued", w.Code, len(queue.ready))
	}
}

func TestCallbackRejectsMissingAudio(t *testing.T) {
	queue := &recordingQueue{}
	w := postCallback(callbackRouter(queue), `{"code":200,"data":{"callbackType":"complete","task_id":"abc","data":[]}}`)

	if w.Code != http.StatusBadRequest || len(queue.ready) != 0 {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCallbackRouteRequiresSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	queue := &recordingQueue{}
	m := &Module{handler: NewHandler(nil, queue, logger.Nop()), callbackSecret: "cb-secret"}
	engine := gin.New()
	v1 := engine.Group("/api/v1")
	m.RegisterRoutes(&apphttp.RouterContext{
		Engine:             engine,
		V1:                 v1,
		Operator:           v1.Group(""),
		WebhookRateLimiter: httpkit.NewIPRateLimiter(rate.Inf, 1, logger.Nop()),
	})
	body := `{"code":200,"data":{"callbackType":"complete","task_id":"abc","data":[{"audio_url":"https://cdn.example/a.mp3"}]}}`

	if w := postCallback(engine, body); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if len(queue.ready) != 0 {
		t.Fatal("unauthenticated callback must not queue")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/music/callback?token=cb-secret", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted || len(queue.ready) != 1 {
		t.Fatalf("expected 202 with token, got %d and %d queued", w.Code, len(queue.ready))
	}
}
