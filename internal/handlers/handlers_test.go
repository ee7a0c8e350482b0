package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/maestro/internal/interfaces"
	"github.com/ternarybob/maestro/internal/models"
)

// mockProcessor implements interfaces.TurnProcessor for testing
type mockProcessor struct {
	mu          sync.Mutex
	received    []models.InboundMessage
	processFunc func(ctx context.Context, message models.InboundMessage) (*models.TurnOutcome, error)
}

func (m *mockProcessor) ProcessTurn(ctx context.Context, message models.InboundMessage) (*models.TurnOutcome, error) {
	m.mu.Lock()
	m.received = append(m.received, message)
	m.mu.Unlock()
	if m.processFunc != nil {
		return m.processFunc(ctx, message)
	}
	return &models.TurnOutcome{TurnID: "turn_test"}, nil
}

func (m *mockProcessor) messages() []models.InboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.InboundMessage(nil), m.received...)
}

const webhookBody = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "waba",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "messages": [
          {"from": "51999000111", "id": "wamid.1", "type": "text", "text": {"body": "I have a rash"}},
          {"from": "51999000111", "id": "wamid.2", "type": "reaction"},
          {"from": "51999000111", "id": "wamid.3", "type": "image", "image": {"id": "media-1", "caption": "this one"}}
        ]
      }
    }]
  }]
}`

func TestWebhookVerify(t *testing.T) {
	handler := NewWebhookHandler("secret", &mockProcessor{}, arbor.NewLogger())

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantBody   string
	}{
		{"valid", "hub.mode=subscribe&hub.verify_token=secret&hub.challenge=12345", http.StatusOK, "12345"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=12345", http.StatusForbidden, ""},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=secret&hub.challenge=12345", http.StatusForbidden, ""},
		{"missing", "", http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/webhook?"+tt.query, nil)
			rec := httptest.NewRecorder()
			handler.WebhookRoute(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestWebhookVerify_EmptyTokenRejectsEverything(t *testing.T) {
	handler := NewWebhookHandler("", &mockProcessor{}, arbor.NewLogger())
	req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=&hub.challenge=1", nil)
	rec := httptest.NewRecorder()
	handler.WebhookRoute(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWebhookNotification(t *testing.T) {
	processor := &mockProcessor{}
	handler := NewWebhookHandler("secret", processor, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(webhookBody))
	rec := httptest.NewRecorder()
	handler.WebhookRoute(rec, req)
	handler.Wait()

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success"}`, rec.Body.String())

	received := processor.messages()
	require.Len(t, received, 2)
	assert.Equal(t, "I have a rash", received[0].Text)
	assert.Equal(t, "51999000111", received[0].ConversationID)
	assert.Equal(t, "media-1", received[1].AttachmentID)
	assert.Equal(t, "this one", received[1].Text)
}

func TestWebhookNotification_ProcessingOutlivesRequest(t *testing.T) {
	var ctxErr error
	processor := &mockProcessor{
		processFunc: func(ctx context.Context, message models.InboundMessage) (*models.TurnOutcome, error) {
			ctxErr = ctx.Err()
			return nil, errors.New("generation failed")
		},
	}
	handler := NewWebhookHandler("secret", processor, arbor.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(webhookBody)).WithContext(ctx)
	rec := httptest.NewRecorder()
	handler.WebhookRoute(rec, req)
	cancel()
	handler.Wait()

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, ctxErr)
	assert.Len(t, processor.messages(), 2)
}

func TestWebhookNotification_BadBody(t *testing.T) {
	processor := &mockProcessor{}
	handler := NewWebhookHandler("secret", processor, arbor.NewLogger())

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.WebhookRoute(rec, req)
	handler.Wait()

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, processor.messages())
}

func TestWebhookNotification_OtherObjectIgnored(t *testing.T) {
	processor := &mockProcessor{}
	handler := NewWebhookHandler("secret", processor, arbor.NewLogger())

	body := strings.Replace(webhookBody, "whatsapp_business_account", "page", 1)
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.WebhookRoute(rec, req)
	handler.Wait()

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, processor.messages())
}

func TestWebhookRoute_MethodNotAllowed(t *testing.T) {
	handler := NewWebhookHandler("secret", &mockProcessor{}, arbor.NewLogger())
	rec := httptest.NewRecorder()
	handler.WebhookRoute(rec, httptest.NewRequest(http.MethodDelete, "/webhook", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func executeAsk(handler *AskHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.AskHandler(rec, req)
	return rec
}

func TestAskHandler(t *testing.T) {
	processor := &mockProcessor{
		processFunc: func(ctx context.Context, message models.InboundMessage) (*models.TurnOutcome, error) {
			return &models.TurnOutcome{TurnID: "turn_1", Responded: true, Reply: "Use 4 cm cover."}, nil
		},
	}
	handler := NewAskHandler(processor, arbor.NewLogger())

	rec := executeAsk(handler, `{"conversation_id":"c1","text":"  Minimum cover for footings?  "}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, AskResponse{ConversationID: "c1", TurnID: "turn_1", Responded: true, Reply: "Use 4 cm cover."}, resp)
	assert.Equal(t, "Minimum cover for footings?", processor.messages()[0].Text)
}

func TestAskHandler_GeneratesConversationID(t *testing.T) {
	processor := &mockProcessor{}
	handler := NewAskHandler(processor, arbor.NewLogger())

	rec := executeAsk(handler, `{"text":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.ConversationID, "req_"))
	assert.False(t, resp.Responded)
	assert.Equal(t, resp.ConversationID, processor.messages()[0].ConversationID)
}

func TestAskHandler_Errors(t *testing.T) {
	failing := &mockProcessor{
		processFunc: func(ctx context.Context, message models.InboundMessage) (*models.TurnOutcome, error) {
			return nil, errors.New("model unavailable")
		},
	}

	tests := []struct {
		name       string
		processor  interfaces.TurnProcessor
		method     string
		body       string
		wantStatus int
	}{
		{"bad json", &mockProcessor{}, http.MethodPost, "{", http.StatusBadRequest},
		{"empty text", &mockProcessor{}, http.MethodPost, `{"text":"   "}`, http.StatusBadRequest},
		{"wrong method", &mockProcessor{}, http.MethodGet, "", http.StatusMethodNotAllowed},
		{"generation failure", failing, http.MethodPost, `{"text":"hi"}`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAskHandler(tt.processor, arbor.NewLogger())
			req := httptest.NewRequest(tt.method, "/api/ask", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.AskHandler(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestAPIHandler(t *testing.T) {
	handler := NewAPIHandler(arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.VersionHandler(rec, httptest.NewRequest(http.MethodGet, "/api/version", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version"`)

	rec = httptest.NewRecorder()
	handler.HealthHandler(rec, httptest.NewRequest(http.MethodPost, "/api/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	handler.NotFoundHandler(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// stubScheduler implements interfaces.SchedulerService for testing
type stubScheduler struct {
	jobs       map[string]*interfaces.JobStatus
	triggerErr error
	triggered  []string
}

func (s *stubScheduler) Start() error            { return nil }
func (s *stubScheduler) Stop() error             { return nil }
func (s *stubScheduler) IsRunning() bool         { return true }
func (s *stubScheduler) EnableJob(string) error  { return nil }
func (s *stubScheduler) DisableJob(string) error { return nil }

func (s *stubScheduler) RegisterJob(name, schedule, description string, handler interfaces.JobHandler) error {
	return nil
}

func (s *stubScheduler) TriggerJob(name string) error {
	s.triggered = append(s.triggered, name)
	return s.triggerErr
}

func (s *stubScheduler) GetJobStatus(name string) (*interfaces.JobStatus, error) {
	status, ok := s.jobs[name]
	if !ok {
		return nil, errors.New("job " + name + " not found")
	}
	return status, nil
}

func (s *stubScheduler) GetAllJobStatuses() map[string]*interfaces.JobStatus {
	return s.jobs
}

func TestSchedulerHandler(t *testing.T) {
	scheduler := &stubScheduler{jobs: map[string]*interfaces.JobStatus{
		"badger_gc": {Name: "badger_gc", Enabled: true, Schedule: "@every 1h"},
	}}
	handler := NewSchedulerHandler(scheduler, arbor.NewLogger())

	rec := httptest.NewRecorder()
	handler.ListJobsHandler(rec, httptest.NewRequest(http.MethodGet, "/api/scheduler/jobs", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"badger_gc"`)

	rec = httptest.NewRecorder()
	handler.TriggerJobHandler(rec, httptest.NewRequest(http.MethodPost, "/api/scheduler/trigger?name=badger_gc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"badger_gc"}, scheduler.triggered)

	rec = httptest.NewRecorder()
	handler.TriggerJobHandler(rec, httptest.NewRequest(http.MethodPost, "/api/scheduler/trigger?name=missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	handler.TriggerJobHandler(rec, httptest.NewRequest(http.MethodPost, "/api/scheduler/trigger", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	scheduler.triggerErr = errors.New("gc failed")
	rec = httptest.NewRecorder()
	handler.TriggerJobHandler(rec, httptest.NewRequest(http.MethodPost, "/api/scheduler/trigger?name=badger_gc", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
