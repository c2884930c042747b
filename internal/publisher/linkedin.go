package publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/maheshrc27/contentflow/internal/models"
	"github.com/maheshrc27/contentflow/internal/transfer"
	"golang.org/x/oauth2"
)

var restliHeader = http.Header{"X-Restli-Protocol-Version": {"2.0.0"}}

type LinkedIn struct {
	apiURL     string
	visibility string
	client     *http.Client

	mu        sync.Mutex
	authorURN string
}

// NewLinkedIn authenticates every request with the given access token.
func NewLinkedIn(ctx context.Context, apiURL, accessToken, visibility string) *LinkedIn {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	return newLinkedInWithClient(apiURL, visibility, client)
}

func newLinkedInWithClient(apiURL, visibility string, client *http.Client) *LinkedIn {
	if visibility == "" {
		visibility = "PUBLIC"
	}
	return &LinkedIn{
		apiURL:     strings.TrimRight(apiURL, "/"),
		visibility: visibility,
		client:     client,
	}
}

func (l *LinkedIn) Platform() models.Platform { return models.PlatformLinkedIn }

// Publish shares the post text with either the first video or all images.
// Without media it is a text-only share.
func (l *LinkedIn) Publish(ctx context.Context, post *models.Post) error {
	author, err := l.author(ctx)
	if err != nil {
		return err
	}

	images, videos := MediaPaths(post)

	category := "NONE"
	var media []transfer.LinkedInShareMedia
	switch {
	case len(videos) > 0:
		asset, err := l.uploadAsset(ctx, author, videos[0], "video")
		if err != nil {
			return err
		}
		category = "VIDEO"
		media = append(media, transfer.LinkedInShareMedia{Status: "READY", Media: asset})
	case len(images) > 0:
		for _, path := range images {
			asset, err := l.uploadAsset(ctx, author, path, "image")
			if err != nil {
				return err
			}
			media = append(media, transfer.LinkedInShareMedia{Status: "READY", Media: asset})
		}
		category = "IMAGE"
	}

	var share transfer.LinkedInUGCPost
	share.Author = author
	share.LifecycleState = "PUBLISHED"
	share.SpecificContent.ShareContent = transfer.LinkedInShareContent{
		ShareCommentary:    transfer.LinkedInTextNode{Text: post.Content},
		ShareMediaCategory: category,
		Media:              media,
	}
	share.Visibility.MemberNetworkVisibility = l.visibility

	if err := doJSON(ctx, l.client, "linkedin", http.MethodPost, l.apiURL+"/v2/ugcPosts", share, nil, restliHeader); err != nil {
		return err
	}
	slog.Info("linkedin share created", "post_id", post.ID, "category", category, "media", len(media))
	return nil
}

// author resolves the member URN once per publisher.
func (l *LinkedIn) author(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.authorURN != "" {
		return l.authorURN, nil
	}

	var info transfer.LinkedInUserInfo
	if err := doJSON(ctx, l.client, "linkedin", http.MethodGet, l.apiURL+"/v2/userinfo", nil, &info, nil); err != nil {
		return "", fmt.Errorf("error resolving linkedin author: %w", err)
	}
	if info.Sub == "" {
		return "", errors.New("linkedin userinfo returned no subject")
	}
	l.authorURN = "urn:li:person:" + info.Sub
	return l.authorURN, nil
}

func (l *LinkedIn) uploadAsset(ctx context.Context, owner, path, kind string) (string, error) {
	var reg transfer.LinkedInRegisterUploadRequest
	reg.RegisterUploadRequest.Recipes = []string{"urn:li:digitalmediaRecipe:feedshare-" + kind}
	reg.RegisterUploadRequest.Owner = owner
	reg.RegisterUploadRequest.ServiceRelationships = []transfer.LinkedInServiceRelationship{
		{RelationshipType: "OWNER", Identifier: "urn:li:userGeneratedContent"},
	}

	var registered transfer.LinkedInRegisterUploadResponse
	url := l.apiURL + "/v2/assets?action=registerUpload"
	if err := doJSON(ctx, l.client, "linkedin", http.MethodPost, url, reg, &registered, restliHeader); err != nil {
		return "", fmt.Errorf("error registering linkedin %s: %w", kind, err)
	}

	uploadURL := registered.Value.UploadMechanism.Request.UploadURL
	asset := registered.Value.Asset
	if uploadURL == "" || asset == "" {
		return "", errors.New("linkedin registerUpload returned no upload url")
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(file))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if _, err := send(l.client, "linkedin", req); err != nil {
		return "", fmt.Errorf("error uploading %s to linkedin: %w", path, err)
	}

	slog.Info("linkedin asset uploaded", "asset", asset, "path", path)
	return asset, nil
}
