// Package mimetype maps filename extensions to MIME types. The table is
// static data; unknown extensions fall back to application/octet-stream.
package mimetype

import (
	"path/filepath"
	"strings"
)

// DefaultType is returned for unknown or missing extensions.
const DefaultType = "application/octet-stream"

var byExtension = map[string]string{
	".txt":  "text/plain",
	".html": "text/html",
	".css":  "text/css",
	".csv":  "text/csv",
	".js":   "application/javascript",
	".json": "application/json",
	".xml":  "application/xml",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".gz":   "application/gzip",
	".tar":  "application/x-tar",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".bmp":  "image/bmp",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
}

// ByFilename returns the MIME type inferred from the extension of name.
func ByFilename(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := byExtension[ext]; ok {
		return t
	}
	return DefaultType
}
