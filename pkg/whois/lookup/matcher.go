package lookup

import (
	"path/filepath"
	"sort"
	"strings"
)

// normalize lower-cases s and strips every character outside [a-z0-9]
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// splitTokens splits the lower-cased base name on runs of
// non-alphanumeric characters, dropping empty parts.
func splitTokens(base string) []string {
	return strings.FieldsFunc(strings.ToLower(base), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
}

// MatchLogo pairs raw WHOIS output with a logo filename. The first and
// last normalized lines are the candidate match targets (WHOIS output
// conventionally carries the organization name at the top or bottom of
// the block). A file matches if its whole normalized base name, or any
// of its delimited parts, is a substring of either candidate. Files
// are tried in lexicographic order so ties resolve deterministically;
// no match returns fallback. Never fails: empty or unparseable output
// degrades to the fallback.
func MatchLogo(output string, files []string, fallback string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	first := normalize(lines[0])
	last := normalize(lines[len(lines)-1])

	sorted := make([]string, len(files))
	copy(sorted, files)
	sort.Strings(sorted)

	for _, file := range sorted {
		if file == fallback {
			continue
		}

		base := strings.TrimSuffix(file, filepath.Ext(file))
		whole := normalize(base)
		if whole == "" {
			// a filename normalizing to nothing would match everything
			continue
		}

		if strings.Contains(first, whole) || strings.Contains(last, whole) {
			return file
		}
		for _, part := range splitTokens(base) {
			if strings.Contains(first, part) || strings.Contains(last, part) {
				return file
			}
		}
	}

	return fallback
}
