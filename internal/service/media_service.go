package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/contentflow/internal/cache"
	"github.com/maheshrc27/contentflow/internal/metrics"
	"github.com/maheshrc27/contentflow/internal/models"
	"github.com/maheshrc27/contentflow/internal/repository"
	"github.com/maheshrc27/contentflow/internal/validation"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrMediaOutsideDir  = errors.New("media file must be inside the media directory")
	ErrMediaInUse       = errors.New("media is linked to posts that have not been sent")
)

type MediaService interface {
	RegisterMedia(ctx context.Context, path string, fileType models.MediaType, originalName string) (*models.MediaAsset, error)
	SaveUpload(ctx context.Context, file *multipart.FileHeader) (*models.MediaAsset, error)
	ListMedia(ctx context.Context) ([]*models.MediaAsset, error)
	DeleteMedia(ctx context.Context, id int64) (bool, error)
	CleanupOrphans(ctx context.Context) (int, error)
}

type mediaService struct {
	ma  repository.MediaAssetRepository
	c   cache.Cache
	dir string
}

func NewMediaService(ma repository.MediaAssetRepository, c cache.Cache, dir string) MediaService {
	return &mediaService{
		ma:  ma,
		c:   c,
		dir: dir,
	}
}

// RegisterMedia records a file under the media directory. Registering the
// same path twice returns the first record.
func (s *mediaService) RegisterMedia(ctx context.Context, path string, fileType models.MediaType, originalName string) (*models.MediaAsset, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("file path cannot be empty")
	}
	path, err := containedPath(s.dir, path)
	if err != nil {
		return nil, err
	}
	if fileType == "" {
		t, ok := validation.MediaTypeForPath(path)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, filepath.Ext(path))
		}
		fileType = t
	}
	if !fileType.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, fileType)
	}
	if originalName == "" {
		originalName = filepath.Base(path)
	}

	ma, err := s.ma.Upsert(ctx, nil, &models.MediaAsset{
		FilePath:         path,
		FileType:         fileType,
		OriginalFilename: originalName,
	})
	if err != nil {
		return nil, fmt.Errorf("error registering media: %w", err)
	}
	return ma, nil
}

// SaveUpload sniffs the uploaded content, stores it under the media directory
// with a random name and registers it.
func (s *mediaService) SaveUpload(ctx context.Context, file *multipart.FileHeader) (*models.MediaAsset, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer src.Close()

	fileBytes, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("error reading file content: %w", err)
	}

	kind, err := filetype.Match(fileBytes)
	if err != nil || kind == types.Unknown {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, file.Filename)
	}
	mediaType, ok := validation.MediaTypeForExtension(kind.Extension)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, kind.Extension)
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating media dir: %w", err)
	}
	path := filepath.Join(s.dir, id+"."+kind.Extension)
	if err := os.WriteFile(path, fileBytes, 0o644); err != nil {
		return nil, fmt.Errorf("error writing media file: %w", err)
	}

	ma, err := s.RegisterMedia(ctx, path, mediaType, file.Filename)
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}
	slog.Info("media uploaded", "media_id", ma.ID, "path", path, "type", mediaType)
	return ma, nil
}

func (s *mediaService) ListMedia(ctx context.Context) ([]*models.MediaAsset, error) {
	return s.ma.List(ctx)
}

// DeleteMedia removes the asset, its post links and its file. Assets still
// linked to a draft or scheduled post are kept.
func (s *mediaService) DeleteMedia(ctx context.Context, id int64) (bool, error) {
	ma, err := s.ma.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("error getting media: %w", err)
	}
	if ma == nil {
		return false, nil
	}

	postIDs, err := s.ma.ListUnsentPostIDs(ctx, id)
	if err != nil {
		return false, fmt.Errorf("error checking media links: %w", err)
	}
	if len(postIDs) > 0 {
		return false, fmt.Errorf("%w: %v", ErrMediaInUse, postIDs)
	}

	ok, err := s.ma.Remove(ctx, nil, id)
	if err != nil {
		return false, fmt.Errorf("error removing media: %w", err)
	}

	if _, err := containedPath(s.dir, ma.FilePath); err != nil {
		slog.Warn("media file outside the media directory left on disk", "media_id", id, "path", ma.FilePath)
	} else if err := os.Remove(ma.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Info(err.Error())
	}
	invalidate(ctx, s.c, cache.PostViewsSetKey)
	return ok, nil
}

// CleanupOrphans drops asset rows whose file no longer exists on disk.
func (s *mediaService) CleanupOrphans(ctx context.Context) (int, error) {
	assets, err := s.ma.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("error listing media: %w", err)
	}

	removed := 0
	for _, ma := range assets {
		if _, err := os.Stat(ma.FilePath); err == nil || !errors.Is(err, os.ErrNotExist) {
			continue
		}

		ok, err := s.ma.Remove(ctx, nil, ma.ID)
		if err != nil {
			slog.Info(err.Error(), "media_id", ma.ID)
			continue
		}
		if ok {
			removed++
			slog.Info("orphan media removed", "media_id", ma.ID, "path", ma.FilePath)
		}
	}

	if removed > 0 {
		metrics.AddMediaOrphans(removed)
		invalidate(ctx, s.c, cache.PostViewsSetKey)
	}
	return removed, nil
}

// containedPath returns the absolute form of path, or ErrMediaOutsideDir when
// it does not resolve to a file below dir. Symlinks are followed on both sides.
func containedPath(dir, path string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("error resolving media dir: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrMediaOutsideDir, path)
	}

	rel, err := filepath.Rel(resolveLinks(absDir), resolveLinks(absPath))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrMediaOutsideDir, path)
	}
	return absPath, nil
}

// resolveLinks evaluates symlinks in p, or in its parent when p does not exist yet.
func resolveLinks(p string) string {
	if r, err := filepath.EvalSymlinks(p); err == nil {
		return r
	}
	if r, err := filepath.EvalSymlinks(filepath.Dir(p)); err == nil {
		return filepath.Join(r, filepath.Base(p))
	}
	return p
}
