// Package naming turns raw model suggestions into safe, unique filenames.
//
// Collision handling appends the _01 suffix at most once. If the suffixed
// name also exists the rename step surfaces the failure for that file; there
// is no incrementing retry loop.
package naming

import (
	"regexp"
	"strings"
	"time"
)

// MaxNameLength caps sanitized base names, extension excluded.
const MaxNameLength = 50

// FallbackPrefix starts the generated name used when a candidate is empty or
// sanitizes to nothing.
const FallbackPrefix = "empty_file_"

// timestampLayout is the fixed-width UTC second stamp appended to fallback
// names, unique across calls at second granularity.
const timestampLayout = "20060102150405"

var invalidChars = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// utcNow is swapped in tests to pin fallback timestamps.
var utcNow = func() time.Time { return time.Now().UTC() }

// Sanitize derives a safe base name from a raw candidate: every character
// outside A-Z, a-z, 0-9 and underscore is deleted, and the result is cut to
// MaxNameLength characters. A candidate that is empty, whitespace-only, or
// left empty by the deletion is replaced with a timestamped fallback name.
// The result always matches ^[A-Za-z0-9_]{1,50}$.
func Sanitize(candidate string) string {
	if strings.TrimSpace(candidate) == "" {
		return fallbackName()
	}

	sanitized := invalidChars.ReplaceAllString(candidate, "")
	if sanitized == "" {
		return fallbackName()
	}

	if len(sanitized) > MaxNameLength {
		sanitized = sanitized[:MaxNameLength]
	}
	return sanitized
}

// Deduplicate resolves base against the names already present in the target
// directory. When base plus extension is taken, the literal suffix _01 is
// appended once. The caller appends the extension to the returned base.
func Deduplicate(base string, existing map[string]struct{}, extension string) string {
	if _, taken := existing[base+"."+extension]; taken {
		return base + "_01"
	}
	return base
}

// ExistingSet filters directory entries down to the names carrying the given
// extension, matched case-insensitively. Names keep their original case so
// Deduplicate can compare exactly.
func ExistingSet(names []string, extension string) map[string]struct{} {
	suffix := "." + strings.ToLower(extension)
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		if strings.HasSuffix(strings.ToLower(name), suffix) {
			set[name] = struct{}{}
		}
	}
	return set
}

func fallbackName() string {
	return FallbackPrefix + utcNow().Format(timestampLayout)
}
