package leads

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"nurture_backend/internal/events"
	"nurture_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func leadRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(svc)
	r := gin.New()
	r.GET("/leads/:id", h.Get)
	r.GET("/leads/:id/messages", h.Messages)
	return r
}

func TestMessagesEndpointClearsUnread(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, events.NewInMemoryBus(logger.Nop()), "NuevoLead", logger.Nop())
	res, err := svc.Ingest(context.Background(), InboundMessage{From: "5215512345678", Text: "Hola"})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	r := leadRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/leads/"+res.Lead.ID.String()+"/messages?limit=10", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Items []Message `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Items) != 1 || body.Items[0].Content != "Hola" {
		t.Fatalf("unexpected messages %+v", body.Items)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/leads/"+res.Lead.ID.String(), nil))
	var lead Lead
	if err := json.Unmarshal(w.Body.Bytes(), &lead); err != nil {
		t.Fatalf("decode lead: %v", err)
	}
	if lead.UnreadCount != 0 || lead.Phone != "5215512345678" {
		t.Fatalf("expected read lead, got %+v", lead)
	}
}

func TestLeadEndpointsRejectUnknownAndMalformedIDs(t *testing.T) {
	svc := NewService(newMemoryStore(), events.NewInMemoryBus(logger.Nop()), "", logger.Nop())
	r := leadRouter(svc)

	cases := map[string]int{
		"/leads/not-a-uuid":                        http.StatusBadRequest,
		"/leads/" + uuid.NewString():               http.StatusNotFound,
		"/leads/" + uuid.NewString() + "/messages": http.StatusNotFound,
	}
	for path, code := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != code {
			t.Errorf("%s: expected %d, got %d", path, code, w.Code)
		}
	}
}
