package media

import (
	"fmt"
	"mime"
	"strings"
)

type mimeGroup string

const (
	mimeGroupImages mimeGroup = "images"
	mimeGroupVideos mimeGroup = "videos"
)

var mimeGroupTypes = map[mimeGroup][]string{
	mimeGroupImages: {"image/png", "image/jpeg", "image/webp", "image/gif", "image/heic"},
	mimeGroupVideos: {"video/mp4", "video/webm", "video/quicktime"},
}

var mimeGroupByFolder = map[Folder]mimeGroup{
	FolderReturnImages: mimeGroupImages,
	FolderReturnVideos: mimeGroupVideos,
}

func sniffMimeType(value string) (string, error) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "", fmt.Errorf("mime type required")
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return "", fmt.Errorf("mime type invalid: %w", err)
	}
	if mediaType == "" {
		return "", fmt.Errorf("mime type missing")
	}
	return strings.ToLower(mediaType), nil
}

func isAllowedMime(folder Folder, mimeType string) bool {
	group, ok := mimeGroupByFolder[folder]
	if !ok {
		return false
	}
	for _, candidate := range mimeGroupTypes[group] {
		if candidate == mimeType {
			return true
		}
	}
	return false
}

func allowedMimeDescription(folder Folder) string {
	if group, ok := mimeGroupByFolder[folder]; ok {
		return string(group)
	}
	return "the approved mime types"
}
