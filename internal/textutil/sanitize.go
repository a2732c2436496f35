package textutil

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxFileNameBytes keeps sanitized names, plus the suffixes slidecue appends,
// under the common 255-byte filesystem limit.
const maxFileNameBytes = 200

// SanitizeFileName makes an uploaded lecture name safe to create on disk.
// Path separators, colons, and asterisks become dashes; quotes, wildcards,
// redirection characters, and control characters are dropped. Leading dots are
// stripped so the result is never hidden or a relative path element, and long
// names are shortened while keeping the extension.
func SanitizeFileName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '/', r == '\\', r == ':', r == '*':
			return '-'
		case r == '?', r == '"', r == '<', r == '>', r == '|':
			return -1
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, name)
	cleaned = strings.TrimLeft(strings.TrimSpace(cleaned), ".")
	cleaned = strings.TrimSpace(cleaned)
	if len(cleaned) <= maxFileNameBytes {
		return cleaned
	}
	ext := filepath.Ext(cleaned)
	if len(ext) > maxFileNameBytes/4 {
		ext = ""
	}
	return truncateUTF8(strings.TrimSuffix(cleaned, ext), maxFileNameBytes-len(ext)) + ext
}

// SanitizeToken lowercases value and reduces it to letters, digits, dashes,
// and single underscores, for use inside generated file names. Empty results
// become "unknown".
func SanitizeToken(value string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		if r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	if out := strings.Trim(b.String(), "-"); out != "" {
		return out
	}
	return "unknown"
}

func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
