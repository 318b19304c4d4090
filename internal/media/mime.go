package media

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// avatarExtensions maps each accepted avatar content type to its object extension.
var avatarExtensions = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
	"image/gif":  "gif",
}

// AvatarExtension returns the object extension for an accepted avatar type.
func AvatarExtension(contentType string) (string, bool) {
	ext, ok := avatarExtensions[normalizeContentType(contentType)]
	return ext, ok
}

// SniffMatches reports whether the leading bytes agree with the declared type.
func SniffMatches(declared string, head []byte) bool {
	detected := mimetype.Detect(head)
	want := normalizeContentType(declared)
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(want) {
			return true
		}
	}
	return false
}

func normalizeContentType(value string) string {
	base, _, _ := strings.Cut(value, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
