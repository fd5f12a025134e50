package itemdef

import "strings"

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func hasPrefix(name, partial string) bool {
	return strings.HasPrefix(name, partial)
}

func hasWord(name, partial string) bool {
	for _, w := range strings.Fields(name) {
		if w == partial {
			return true
		}
	}
	return false
}

func hasSubstring(name, partial string) bool {
	return strings.Contains(name, partial)
}
