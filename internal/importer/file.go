package importer

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxFileNameLen = 255

var unsafeFileNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeFileName strips path components and replaces anything outside
// [A-Za-z0-9._-] so the original name is safe to persist and echo back.
func SanitizeFileName(name string) string {
	name = path.Base(filepath.ToSlash(name))
	name = unsafeFileNameChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." {
		name = "upload"
	}
	if len(name) > maxFileNameLen {
		name = name[:maxFileNameLen]
	}
	return name
}

// storageKey generates the blob key for an uploaded file: import-scoped
// namespace, time prefix for human-browsable listings, random UUID for
// uniqueness, original extension preserved.
func storageKey(fileName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(SanitizeFileName(fileName)))
	return fmt.Sprintf("imports/%s-%s%s", now.UTC().Format("20060102T150405"), uuid.NewString(), ext)
}
