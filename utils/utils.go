package utils

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const shortIDMaxSlugLen = 24

// NewShortID строит человекочитаемый идентификатор турнира из его названия:
// slug плюс короткий случайный суффикс, чтобы избежать коллизий имён.
func NewShortID(name string) string {
	slug := Slugify(name)
	if len(slug) > shortIDMaxSlugLen {
		slug = strings.Trim(slug[:shortIDMaxSlugLen], "-")
	}

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	if slug == "" {
		return suffix
	}
	return slug + "-" + suffix
}

// Slugify приводит строку к виду, пригодному для URL и ключей хранилища.
func Slugify(s string) string {
	var b strings.Builder
	prevDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) && r < unicode.MaxASCII, unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
