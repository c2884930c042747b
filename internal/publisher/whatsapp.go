package publisher

import (
	"context"
	"log/slog"

	"github.com/maheshrc27/contentflow/internal/models"
)

// WhatsApp has no delivery channel yet. Publishing only logs and reports
// success so the post leaves the schedule.
type WhatsApp struct{}

func NewWhatsApp() *WhatsApp { return &WhatsApp{} }

func (WhatsApp) Platform() models.Platform { return models.PlatformWhatsApp }

func (WhatsApp) Publish(ctx context.Context, post *models.Post) error {
	slog.Warn("whatsapp delivery skipped, marking as sent", "post_id", post.ID, "recipients", len(post.Contacts))
	return nil
}
