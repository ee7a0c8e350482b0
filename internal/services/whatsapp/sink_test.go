package whatsapp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/maestro/internal/models"
)

func newRecordingServer(t *testing.T) (*httptest.Server, func() []SendTextRequest) {
	t.Helper()
	var mu sync.Mutex
	var bodies []SendTextRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body SendTextRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		bodies = append(bodies, body)
		mu.Unlock()
		_, _ = io.WriteString(w, `{"messages":[{"id":"wamid.x"}]}`)
	}))
	t.Cleanup(server.Close)
	return server, func() []SendTextRequest {
		mu.Lock()
		defer mu.Unlock()
		return bodies
	}
}

func TestSink_FormatsAndSends(t *testing.T) {
	server, sent := newRecordingServer(t)
	sink := NewSink(newTestClient(server), true, arbor.NewLogger())

	err := sink.Send(context.Background(), models.OutboundMessage{ConversationID: "51999", Text: "**Sí**, usa concreto."})
	require.NoError(t, err)

	bodies := sent()
	require.Len(t, bodies, 1)
	assert.Equal(t, "51999", bodies[0].To)
	assert.Equal(t, "*Sí*, usa concreto.", bodies[0].Text.Body)
}

func TestSink_SplitsLongReplies(t *testing.T) {
	server, sent := newRecordingServer(t)
	sink := NewSink(newTestClient(server), false, arbor.NewLogger())

	paragraph := strings.Repeat("concreto ", 300)
	text := paragraph + "\n\n" + paragraph
	require.NoError(t, sink.Send(context.Background(), models.OutboundMessage{ConversationID: "51999", Text: text}))

	bodies := sent()
	require.Len(t, bodies, 2)
	for _, body := range bodies {
		assert.LessOrEqual(t, utf8.RuneCountInString(body.Text.Body), maxTextLength)
	}
}

func TestSink_RejectsEmpty(t *testing.T) {
	server, sent := newRecordingServer(t)
	sink := NewSink(newTestClient(server), true, arbor.NewLogger())

	assert.Error(t, sink.Send(context.Background(), models.OutboundMessage{ConversationID: "51999", Text: " "}))
	assert.Empty(t, sent())
}

func TestSplitText(t *testing.T) {
	assert.Equal(t, []string{"corto"}, SplitText("corto", 10))
	assert.Equal(t, []string{"uno dos", "tres"}, SplitText("uno dos\n\ntres", 10))
	assert.Equal(t, []string{"uno", "dos", "tres"}, SplitText("uno dos tres", 5))
	assert.Equal(t, []string{"abcde", "fghij"}, SplitText("abcdefghij", 5))
	assert.Equal(t, []string{"ññññ", "ñ"}, SplitText("ñññññ", 4))
}
