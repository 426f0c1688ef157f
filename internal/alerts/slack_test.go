package alerts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raisket/audittrail/internal/config"
)

func TestSlackDeliverBuildsAttachment(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewSlackChannel(config.SlackConfig{WebhookURL: srv.URL, Channel: "#compliance"})
	require.NotNil(t, ch)
	require.NoError(t, ch.Deliver(context.Background(), testAlert()))

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, "#compliance", payload["channel"])
	assert.Contains(t, payload["text"], "large-wire")

	attachments, ok := payload["attachments"].([]interface{})
	require.True(t, ok)
	require.Len(t, attachments, 1)
	attachment := attachments[0].(map[string]interface{})
	assert.Equal(t, "#d32f2f", attachment["color"])
}

func TestSlackDeliverNonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	ch := NewSlackChannel(config.SlackConfig{WebhookURL: srv.URL})
	err := ch.Deliver(context.Background(), testAlert())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestSlackUnconfiguredIsNil(t *testing.T) {
	assert.Nil(t, NewSlackChannel(config.SlackConfig{}))
}

func TestAlertSummary(t *testing.T) {
	a := testAlert()
	s := a.Summary()
	assert.Contains(t, s, "large-wire")
	assert.Contains(t, s, "WIRE_OUT")
	assert.Contains(t, s, "user-1")
	assert.Contains(t, s, "critical")
}
