package validation

import (
	"path/filepath"
	"strings"

	"github.com/maheshrc27/contentflow/internal/models"
)

var mediaExtensions = map[string]models.MediaType{
	"png":  models.MediaTypeImage,
	"jpg":  models.MediaTypeImage,
	"jpeg": models.MediaTypeImage,
	"webp": models.MediaTypeImage,
	"gif":  models.MediaTypeImage,
	"mp4":  models.MediaTypeVideo,
	"mov":  models.MediaTypeVideo,
	"avi":  models.MediaTypeVideo,
	"mkv":  models.MediaTypeVideo,
	"webm": models.MediaTypeVideo,
}

// MediaTypeForExtension accepts extensions with or without the leading dot.
func MediaTypeForExtension(ext string) (models.MediaType, bool) {
	t, ok := mediaExtensions[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return t, ok
}

func MediaTypeForPath(path string) (models.MediaType, bool) {
	return MediaTypeForExtension(filepath.Ext(path))
}
