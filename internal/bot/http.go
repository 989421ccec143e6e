package bot

import (
	"crypto/hmac"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// WebhookHandler decodes Telegram updates posted to the webhook route.
// When a secret is configured the request must carry it in the {secret}
// path segment.
func (b *Bot) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if b.webhookSecret != "" {
			given := chi.URLParam(r, "secret")
			if !hmac.Equal([]byte(given), []byte(b.webhookSecret)) {
				b.logger.Warn("Rejected webhook request with bad secret",
					zap.String("remote_addr", r.RemoteAddr),
				)
				http.NotFound(w, r)
				return
			}
		}

		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			b.logger.Warn("Error decoding webhook update", zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		// Process update in background to respond quickly to Telegram
		go b.HandleUpdate(update)

		w.WriteHeader(http.StatusOK)
	}
}
