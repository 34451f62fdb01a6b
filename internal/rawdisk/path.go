package rawdisk

import (
	"runtime"
	"strings"
	"unicode"
)

// NormalizePath rewrites a bare Windows drive letter ("C:", "C:\") into the
// \\.\C: volume path CreateFile requires for raw access. It is a no-op
// everywhere else. On Windows, a path that is already in \\.\ form is
// returned trimmed, with forward slashes turned into backslashes, and
// upper-cased.
func NormalizePath(path string) string {
	if runtime.GOOS != "windows" {
		return path
	}

	path = strings.TrimSpace(path)
	path = strings.ReplaceAll(path, "/", `\`)
	upper := strings.ToUpper(path)

	if strings.HasPrefix(upper, `\\.\`) {
		return upper
	}

	if len(upper) >= 2 && upper[1] == ':' && unicode.IsLetter(rune(upper[0])) {
		return `\\.\` + strings.ToUpper(string(upper[0])) + `:`
	}

	return path
}
