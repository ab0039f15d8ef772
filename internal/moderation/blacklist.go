package moderation

import (
	"regexp"
	"strings"
)

// Blacklist matches nicknames and messages against the forbidden-term set.
// The set is loaded fresh for every check so edits apply without restart.
type Blacklist struct {
	load func() []string
}

// NewBlacklist creates a filter over the given loader
func NewBlacklist(load func() []string) *Blacklist {
	return &Blacklist{load: load}
}

// Match reports the first forbidden term found in text. Matching is
// case-insensitive and whole-word: "spam" matches "no spam here" and "SPAM"
// but not "spammer". An empty blacklist never matches.
func (b *Blacklist) Match(text string) (string, bool) {
	terms := b.load()
	if len(terms) == 0 {
		return "", false
	}

	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		if term != "" {
			quoted = append(quoted, regexp.QuoteMeta(term))
		}
	}
	if len(quoted) == 0 {
		return "", false
	}

	pattern, err := regexp.Compile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
	if err != nil {
		return "", false
	}
	if m := pattern.FindString(text); m != "" {
		return m, true
	}
	return "", false
}
