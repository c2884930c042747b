package publisher

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	config "github.com/maheshrc27/contentflow/configs"
	"github.com/maheshrc27/contentflow/internal/publisher/mail"
)

// FromConfig registers a publisher for every platform whose credentials are
// present. Posts for the others fail with ErrNotConfigured.
func FromConfig(ctx context.Context, cfg config.Config, host MediaHost) *Registry {
	client := &http.Client{Timeout: 2 * time.Minute}
	var pubs []Publisher

	if transport := mailTransport(cfg.Gmail); transport != nil {
		pubs = append(pubs, NewGmail(cfg.Gmail.Username, transport))
	} else {
		slog.Warn("gmail publisher disabled: no credentials")
	}

	if cfg.WordPress.Site != "" && cfg.WordPress.User != "" && cfg.WordPress.AppPassword != "" {
		pubs = append(pubs, NewWordPress(cfg.WordPress.Site, cfg.WordPress.User, cfg.WordPress.AppPassword, client))
	} else {
		slog.Warn("wordpress publisher disabled: WP_SITE, WP_USER or WP_APP_PASS missing")
	}

	switch {
	case cfg.Instagram.AccountID == "" || cfg.Instagram.AccessToken == "":
		slog.Warn("instagram publisher disabled: INSTAGRAM_ACCOUNT_ID or INSTAGRAM_ACCESS_TOKEN missing")
	case host == nil:
		slog.Warn("instagram publisher disabled: no public media host configured")
	default:
		pubs = append(pubs, NewInstagram(cfg.Instagram.GraphURL, cfg.Instagram.AccountID, cfg.Instagram.AccessToken, host, client))
	}

	if cfg.LinkedIn.AccessToken != "" {
		pubs = append(pubs, NewLinkedIn(ctx, cfg.LinkedIn.APIURL, cfg.LinkedIn.AccessToken, cfg.LinkedIn.Visibility))
	} else {
		slog.Warn("linkedin publisher disabled: LINKEDIN_ACCESS_TOKEN missing")
	}

	pubs = append(pubs, NewWhatsApp())

	return NewRegistry(cfg.DispatchTimeout, pubs...)
}

// mailTransport prefers the Gmail API when an OAuth refresh token is set.
func mailTransport(g config.Gmail) mail.Transport {
	if g.RefreshToken != "" {
		t, err := mail.NewGmailAPITransport(g.ClientID, g.ClientSecret, g.RefreshToken)
		if err == nil {
			return t
		}
		slog.Warn(err.Error())
	}
	if g.Username != "" && g.AppPassword != "" {
		return mail.NewSMTPTransport(g.SMTPAddr, g.Username, g.AppPassword)
	}
	return nil
}
