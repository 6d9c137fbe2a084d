package export

import (
	"mime"
	"strings"
	"unicode"

	"github.com/ssargent/mediashelf/pkg/catalog"
)

const maxFilenameRunes = 120

// Filename derives the download name for a media document from its title.
// Path separators, control characters and quoting characters are replaced
// so the result is safe both on disk and inside a header.
func Filename(m catalog.Media) string {
	var b strings.Builder
	n := 0
	for _, r := range strings.TrimSpace(m.Title) {
		if n == maxFilenameRunes {
			break
		}
		switch {
		case unicode.IsControl(r), strings.ContainsRune(`/\:*?"<>|;%`, r):
			b.WriteRune('_')
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
		n++
	}

	name := strings.Trim(b.String(), " .")
	if name == "" {
		name = strings.Trim(sanitizeID(m.ImdbID), ".")
	}
	if name == "" {
		name = "media"
	}
	return name + ".pdf"
}

// ContentDisposition returns an attachment header value naming Filename(m).
// Non-ASCII titles are encoded per RFC 2231.
func ContentDisposition(m catalog.Media) string {
	v := mime.FormatMediaType("attachment", map[string]string{"filename": Filename(m)})
	if v == "" {
		return `attachment; filename="media.pdf"`
	}
	return v
}

func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_') {
			return r
		}
		return -1
	}, id)
}
