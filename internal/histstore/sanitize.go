package histstore

import (
	"strings"

	"github.com/calvinalkan/edithist/internal/hashdiff"
)

// maxSanitizedNameLength is a conservative filesystem name-length budget
// (well under the common 255-byte ext4/APFS/NTFS limit even after the
// ".chkpt" suffix and a hash disambiguator are appended)
const maxSanitizedNameLength = 200

// Sanitize maps an absolute file path to a safe, collision-free (within a
// conversation directory) checkpoint filename stem: path separators
// become underscores, and an overlong result is truncated with an
// 8-hex-char suffix derived from the hash of the full original path so
// two different long paths that happen to share the same truncated
// prefix still land on different files.
func Sanitize(path string) string {
	replaced := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}

		return r
	}, path)

	if len(replaced) <= maxSanitizedNameLength {
		return replaced
	}

	suffix := hashdiff.HashBytes([]byte(path))[:8]
	keep := maxSanitizedNameLength - len(suffix) - 1

	return replaced[:keep] + "_" + suffix
}
