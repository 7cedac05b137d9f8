package news

import (
	"regexp"
	"strings"
	"sync"
)

var wordPatterns sync.Map // keyword -> *regexp.Regexp

// ContainsAny distinguishes phrases and short words (avoids "ai" matching "said").
func ContainsAny(text string, keywords []string) bool {
	text = strings.ToLower(text)
	for _, k := range keywords {
		if matchKeyword(text, k) {
			return true
		}
	}
	return false
}

// CountMatches returns how many distinct keywords occur in text.
func CountMatches(text string, keywords []string) int {
	text = strings.ToLower(text)
	seen := make(map[string]struct{}, len(keywords))
	n := 0
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if matchKeyword(text, k) {
			n++
		}
	}
	return n
}

// matchKeyword expects text already lower-cased.
func matchKeyword(text, k string) bool {
	k = strings.ToLower(strings.TrimSpace(k))
	if k == "" {
		return false
	}

	// If keyword is a phrase (contains space) -> substring match
	if strings.Contains(k, " ") {
		return strings.Contains(text, k)
	}

	// Short tokens (<=3) -> whole word match using word boundary regexp
	if len(k) <= 3 {
		return wordPattern(k).MatchString(text)
	}

	return strings.Contains(text, k)
}

func wordPattern(k string) *regexp.Regexp {
	if re, ok := wordPatterns.Load(k); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(k) + `\b`)
	wordPatterns.Store(k, re)
	return re
}

// LowerAll returns a trimmed, lower-cased copy without empty entries.
func LowerAll(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
