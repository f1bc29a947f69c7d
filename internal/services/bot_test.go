package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournament/internal/models"
)

func TestAnnouncementText(t *testing.T) {
	receipt := &models.SettlementReceipt{
		Challenge: "<vault>",
		Winner:    "EQwinner",
		Message:   "⏱️ Tournament Expired",
		Transfers: []models.TransferOutcome{
			{Leg: models.TransferLegCreator, Status: models.TransferStatusSuccess},
			{Leg: models.TransferLegWinner, Status: models.TransferStatusFailed},
		},
	}

	text := AnnouncementText(receipt)

	assert.Contains(t, text, "&lt;vault&gt;")
	assert.Contains(t, text, "<code>EQwinner</code>")
	assert.Contains(t, text, "1 transfer(s) need manual follow-up")
}

func TestBotPublishSettlement(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/sendMessage"))

		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		if json.Unmarshal(body, &payload) == nil {
			form = url.Values{}
			for k, v := range payload {
				if s, ok := v.(string); ok {
					form.Set(k, s)
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":-100123,"type":"channel"},"text":"ok"}}`)
	}))
	defer srv.Close()

	bot, err := NewBot(BotConfig{Token: "123:abc", ChatID: -100123, URL: srv.URL})
	require.NoError(t, err)

	err = bot.PublishSettlement(context.Background(), &models.SettlementReceipt{Challenge: "vault", Winner: "w", Message: "done"})
	require.NoError(t, err)

	require.NotNil(t, form)
	assert.Equal(t, "-100123", form.Get("chat_id"))
	assert.Contains(t, form.Get("text"), "vault")
}
