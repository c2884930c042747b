package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/maheshrc27/contentflow/internal/models"
	"github.com/maheshrc27/contentflow/internal/transfer"
)

type WordPress struct {
	apiBase  string
	user     string
	password string
	client   *http.Client
}

func NewWordPress(site, user, appPassword string, client *http.Client) *WordPress {
	if client == nil {
		client = http.DefaultClient
	}
	return &WordPress{
		apiBase:  strings.TrimRight(site, "/") + "/wp-json/wp/v2",
		user:     user,
		password: strings.ReplaceAll(appPassword, " ", ""),
		client:   client,
	}
}

func (w *WordPress) Platform() models.Platform { return models.PlatformWordPress }

// Publish uploads the media, embeds it after the content and creates a
// published post. Media that fails to upload is skipped.
func (w *WordPress) Publish(ctx context.Context, post *models.Post) error {
	images, videos := MediaPaths(post)

	var embeds []string
	for _, path := range images {
		media, err := w.uploadMedia(ctx, path)
		if err != nil {
			slog.Error("wordpress image upload failed", "post_id", post.ID, "path", path, "error", err)
			continue
		}
		embeds = append(embeds, fmt.Sprintf(`<p><img src="%s" alt="%s"></p>`, media.SourceURL, html.EscapeString(post.Title)))
	}
	for _, path := range videos {
		media, err := w.uploadMedia(ctx, path)
		if err != nil {
			slog.Error("wordpress video upload failed", "post_id", post.ID, "path", path, "error", err)
			continue
		}
		embeds = append(embeds, fmt.Sprintf(`<p>[video src="%s"]</p>`, media.SourceURL))
	}

	payload := transfer.WordPressPost{
		Title:   post.Title,
		Content: post.Content + "\n\n" + strings.Join(embeds, "\n"),
		Status:  "publish",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.apiBase+"/posts", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var created transfer.WordPressPostResponse
	if err := w.do(req, &created); err != nil {
		return err
	}
	if created.ID == 0 {
		return errors.New("wordpress returned no post id")
	}

	slog.Info("wordpress post created", "post_id", post.ID, "wp_id", created.ID, "media", len(embeds))
	return nil
}

func (w *WordPress) uploadMedia(ctx context.Context, path string) (*transfer.WordPressMedia, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.apiBase+"/media", bytes.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filepath.Base(path)))

	var media transfer.WordPressMedia
	if err := w.do(req, &media); err != nil {
		return nil, err
	}
	if media.ID == 0 || media.SourceURL == "" {
		return nil, errors.New("wordpress media upload returned no url")
	}
	return &media, nil
}

func (w *WordPress) do(req *http.Request, out any) error {
	req.SetBasicAuth(w.user, w.password)

	body, err := send(w.client, "wordpress", req)
	if err != nil {
		return err
	}
	return decodeLenient(body, out)
}

// decodeLenient skips anything printed before the JSON object. Some
// WordPress installs emit PHP notices ahead of the body.
func decodeLenient(body []byte, out any) error {
	start := bytes.IndexByte(body, '{')
	if start < 0 {
		return fmt.Errorf("wordpress response contains no JSON object: %q", truncate(string(body), 200))
	}
	if start > 0 {
		slog.Warn("wordpress response had leading non-JSON text", "text", truncate(strings.TrimSpace(string(body[:start])), 200))
	}
	if err := json.Unmarshal(body[start:], out); err != nil {
		return fmt.Errorf("error parsing wordpress response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
