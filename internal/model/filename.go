package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Filename returns the on-disk JSON filename for a competitor name:
// spaces and path separators become underscores.
func Filename(name string) string {
	return sanitize(name) + ".json"
}

func sanitize(name string) string {
	replacer := strings.NewReplacer(
		" ", "_",
		"/", "_",
		"\\", "_",
	)
	return replacer.Replace(strings.TrimSpace(name))
}

// FilenameWithSuffix returns a collision-proof filename carrying a short
// hash of the raw name. Used when two distinct names sanitize to the
// same filename within one run.
func FilenameWithSuffix(name string) string {
	sum := sha256.Sum256([]byte(name))
	return sanitize(name) + "-" + hex.EncodeToString(sum[:2]) + ".json"
}

// AssignFilenames maps each competitor name to a unique filename.
// Non-colliding names keep the plain sanitized form so existing record
// folders stay addressable; colliding names all get hash suffixes.
func AssignFilenames(names []string) map[string]string {
	counts := make(map[string]int, len(names))
	for _, n := range names {
		counts[Filename(n)]++
	}

	out := make(map[string]string, len(names))
	for _, n := range names {
		plain := Filename(n)
		if counts[plain] > 1 {
			out[n] = FilenameWithSuffix(n)
		} else {
			out[n] = plain
		}
	}
	return out
}

// NameFromFilename reverses the sanitization well enough for display:
// underscores become spaces and the .json suffix is dropped. Hash
// suffixes from collision handling are preserved as-is.
func NameFromFilename(filename string) string {
	base := strings.TrimSuffix(filename, ".json")
	return strings.ReplaceAll(base, "_", " ")
}
