// Package media uploads buyer-supplied files to object storage.
package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

// Folder is the object prefix an upload is stored under.
type Folder string

const (
	FolderReturnImages Folder = "returns/images"
	FolderReturnVideos Folder = "returns/videos"
)

const defaultMaxUploadBytes = 50 * 1024 * 1024

type objectUploader interface {
	Upload(ctx context.Context, object, contentType string, body io.Reader) (string, error)
}

// File is one uploaded part. Size is the declared size in bytes.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Service exposes media upload semantics.
type Service interface {
	Upload(ctx context.Context, folder Folder, file File) (string, error)
	UploadAll(ctx context.Context, folder Folder, files []File) ([]string, error)
}

type service struct {
	storage        objectUploader
	maxUploadBytes int64
	maxFiles       int
	now            func() time.Time
}

type ServiceParams struct {
	Storage     objectUploader
	MaxUploadMB int
	MaxFiles    int
	Now         func() time.Time
}

// NewService constructs a media service backed by the provided uploader.
func NewService(params ServiceParams) (Service, error) {
	if params.Storage == nil {
		return nil, fmt.Errorf("object uploader required")
	}
	maxBytes := int64(defaultMaxUploadBytes)
	if params.MaxUploadMB > 0 {
		maxBytes = int64(params.MaxUploadMB) * 1024 * 1024
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		storage:        params.Storage,
		maxUploadBytes: maxBytes,
		maxFiles:       params.MaxFiles,
		now:            now,
	}, nil
}

func (s *service) Upload(ctx context.Context, folder Folder, file File) (string, error) {
	if _, ok := mimeGroupByFolder[folder]; !ok {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "unknown media folder %q", folder)
	}
	if file.Body == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "file body is required")
	}
	if file.Size <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if file.Size > s.maxUploadBytes {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "file must be at most %d bytes", s.maxUploadBytes)
	}
	mimeType, err := sniffMimeType(file.ContentType)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid content type")
	}
	if !isAllowedMime(folder, mimeType) {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "only %s may be uploaded here", allowedMimeDescription(folder))
	}

	key := s.buildKey(folder, file.Name)
	url, err := s.storage.Upload(ctx, key, mimeType, io.LimitReader(file.Body, s.maxUploadBytes))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload media")
	}
	return url, nil
}

// UploadAll uploads files in order and stops at the first failure.
func (s *service) UploadAll(ctx context.Context, folder Folder, files []File) ([]string, error) {
	if s.maxFiles > 0 && len(files) > s.maxFiles {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "at most %d files may be uploaded", s.maxFiles)
	}
	urls := make([]string, 0, len(files))
	for _, file := range files {
		url, err := s.Upload(ctx, folder, file)
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (s *service) buildKey(folder Folder, fileName string) string {
	id := uuid.New()
	cleanName := sanitizeFileName(fileName)
	if cleanName == "" {
		cleanName = id.String()
	}
	return fmt.Sprintf("%s/return_%d_%s_%s", folder, s.now().UnixMilli(), id.String()[:8], cleanName)
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.TrimSpace(name))
	if clean == "" || clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
