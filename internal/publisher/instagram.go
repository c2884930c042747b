package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/maheshrc27/contentflow/internal/models"
	"github.com/maheshrc27/contentflow/internal/transfer"
)

const maxCarouselItems = 10

// MediaHost turns a local file into a URL the Graph API can fetch.
type MediaHost interface {
	PublicURL(ctx context.Context, localPath string) (string, error)
}

type Instagram struct {
	graphURL     string
	accountID    string
	accessToken  string
	host         MediaHost
	client       *http.Client
	pollInterval time.Duration
	maxPolls     int
}

func NewInstagram(graphURL, accountID, accessToken string, host MediaHost, client *http.Client) *Instagram {
	if client == nil {
		client = http.DefaultClient
	}
	return &Instagram{
		graphURL:     strings.TrimRight(graphURL, "/"),
		accountID:    accountID,
		accessToken:  accessToken,
		host:         host,
		client:       client,
		pollInterval: 5 * time.Second,
		maxPolls:     60,
	}
}

func (ig *Instagram) Platform() models.Platform { return models.PlatformInstagram }

// Publish posts the first video as a reel, otherwise a single photo or a
// carousel of up to ten photos.
func (ig *Instagram) Publish(ctx context.Context, post *models.Post) error {
	images, videos := MediaPaths(post)
	caption := post.Content

	var (
		containerID string
		err         error
	)
	switch {
	case len(videos) > 0:
		slog.Info("publishing instagram reel", "post_id", post.ID, "path", videos[0])
		containerID, err = ig.videoContainer(ctx, videos[0], caption)
	case len(images) == 1:
		slog.Info("publishing instagram photo", "post_id", post.ID, "path", images[0])
		containerID, err = ig.imageContainer(ctx, images[0], caption, false)
	case len(images) > 1:
		if len(images) > maxCarouselItems {
			slog.Warn("carousel truncated", "post_id", post.ID, "images", len(images), "kept", maxCarouselItems)
			images = images[:maxCarouselItems]
		}
		slog.Info("publishing instagram carousel", "post_id", post.ID, "images", len(images))
		containerID, err = ig.carouselContainer(ctx, images, caption)
	default:
		return ErrNoMedia
	}
	if err != nil {
		return err
	}

	return ig.publishContainer(ctx, containerID)
}

func (ig *Instagram) mediaURL() string {
	return fmt.Sprintf("%s/%s/media", ig.graphURL, ig.accountID)
}

func (ig *Instagram) createContainer(ctx context.Context, payload map[string]any) (string, error) {
	payload["access_token"] = ig.accessToken

	var result transfer.InstagramContainer
	if err := doJSON(ctx, ig.client, "instagram", http.MethodPost, ig.mediaURL(), payload, &result, nil); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errors.New("no media ID returned from Instagram")
	}
	return result.ID, nil
}

func (ig *Instagram) imageContainer(ctx context.Context, path, caption string, carouselItem bool) (string, error) {
	url, err := ig.host.PublicURL(ctx, path)
	if err != nil {
		return "", err
	}

	payload := map[string]any{"image_url": url}
	if carouselItem {
		payload["is_carousel_item"] = true
	} else {
		payload["caption"] = caption
	}
	return ig.createContainer(ctx, payload)
}

func (ig *Instagram) videoContainer(ctx context.Context, path, caption string) (string, error) {
	url, err := ig.host.PublicURL(ctx, path)
	if err != nil {
		return "", err
	}

	id, err := ig.createContainer(ctx, map[string]any{
		"media_type": "REELS",
		"video_url":  url,
		"caption":    caption,
	})
	if err != nil {
		return "", err
	}
	return id, ig.waitReady(ctx, id)
}

func (ig *Instagram) carouselContainer(ctx context.Context, images []string, caption string) (string, error) {
	children := make([]string, 0, len(images))
	for _, path := range images {
		id, err := ig.imageContainer(ctx, path, "", true)
		if err != nil {
			return "", fmt.Errorf("carousel item %s: %w", path, err)
		}
		children = append(children, id)
	}

	return ig.createContainer(ctx, map[string]any{
		"media_type": "CAROUSEL",
		"caption":    caption,
		"children":   strings.Join(children, ","),
	})
}

// waitReady polls a video container until Instagram finished processing it.
func (ig *Instagram) waitReady(ctx context.Context, containerID string) error {
	url := fmt.Sprintf("%s/%s?fields=status_code,status&access_token=%s", ig.graphURL, containerID, ig.accessToken)

	for i := 0; i < ig.maxPolls; i++ {
		var status transfer.InstagramContainerStatus
		if err := doJSON(ctx, ig.client, "instagram", http.MethodGet, url, nil, &status, nil); err != nil {
			return err
		}

		switch status.StatusCode {
		case "FINISHED", "PUBLISHED":
			return nil
		case "ERROR", "EXPIRED":
			return fmt.Errorf("instagram container %s failed: %s", containerID, status.Status)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ig.pollInterval):
		}
	}
	return fmt.Errorf("instagram container %s not ready after %d checks", containerID, ig.maxPolls)
}

func (ig *Instagram) publishContainer(ctx context.Context, containerID string) error {
	url := fmt.Sprintf("%s/%s/media_publish", ig.graphURL, ig.accountID)
	payload := map[string]string{
		"creation_id":  containerID,
		"access_token": ig.accessToken,
	}

	var result transfer.InstagramContainer
	if err := doJSON(ctx, ig.client, "instagram", http.MethodPost, url, payload, &result, nil); err != nil {
		return err
	}
	slog.Info("instagram media published", "container_id", containerID, "media_id", result.ID)
	return nil
}
