package publisher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maheshrc27/contentflow/internal/models"
	"github.com/maheshrc27/contentflow/internal/publisher/mail"
)

type Gmail struct {
	from      string
	transport mail.Transport
}

func NewGmail(from string, transport mail.Transport) *Gmail {
	return &Gmail{from: from, transport: transport}
}

func (g *Gmail) Platform() models.Platform { return models.PlatformGmail }

// Publish mails the post to its recipient snapshot with every image and
// video attached.
func (g *Gmail) Publish(ctx context.Context, post *models.Post) error {
	if len(post.Contacts) == 0 {
		return ErrNoRecipients
	}

	msg := &mail.Message{
		From: g.from,
		To:   post.Contacts,
		Text: post.Content,
	}
	if post.Subject != nil {
		msg.Subject = *post.Subject
	}
	if post.ContentHTML != nil {
		msg.HTML = *post.ContentHTML
	}

	images, videos := MediaPaths(post)
	if err := msg.AttachFiles(append(images, videos...)...); err != nil {
		return err
	}

	raw, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("error building mail: %w", err)
	}
	if err := g.transport.Send(ctx, g.from, post.Contacts, raw); err != nil {
		return err
	}

	slog.Info("mail sent", "post_id", post.ID, "recipients", len(post.Contacts), "attachments", len(msg.Attachments))
	return nil
}
