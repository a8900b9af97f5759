package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gnomegl/wagroups/internal/types"
	"github.com/samber/lo"
)

// Matcher reports whether a single keyword matches a piece of text.
type Matcher interface {
	Keyword() string
	Mode() string
	Match(text string) bool
}

// KeywordMatcher matches by case-insensitive substring containment.
type KeywordMatcher struct {
	keyword string
}

func (m *KeywordMatcher) Keyword() string { return m.keyword }
func (m *KeywordMatcher) Mode() string    { return "substring" }

func (m *KeywordMatcher) Match(text string) bool {
	return strings.Contains(strings.ToLower(text), m.keyword)
}

// BoundaryMatcher matches only when the keyword stands as a whole word, so
// that short keywords such as "ai" do not fire inside "main" or "Gmail".
type BoundaryMatcher struct {
	keyword string
	pattern *regexp.Regexp
}

func (m *BoundaryMatcher) Keyword() string { return m.keyword }
func (m *BoundaryMatcher) Mode() string    { return "word" }

func (m *BoundaryMatcher) Match(text string) bool {
	return m.pattern.MatchString(text)
}

type Filter struct {
	matchers []Matcher
}

// New builds one matcher per keyword. Keywords listed in boundary use
// word-boundary matching, every other keyword substring matching.
func New(keywords, boundary []string) (*Filter, error) {
	wordOnly := make(map[string]bool, len(boundary))
	for _, kw := range boundary {
		wordOnly[strings.ToLower(strings.TrimSpace(kw))] = true
	}

	f := &Filter{}
	for _, raw := range keywords {
		kw := strings.ToLower(strings.TrimSpace(raw))
		if kw == "" {
			return nil, fmt.Errorf("empty keyword")
		}
		if !wordOnly[kw] {
			f.matchers = append(f.matchers, &KeywordMatcher{keyword: kw})
			continue
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
		if err != nil {
			return nil, fmt.Errorf("invalid keyword %q: %w", kw, err)
		}
		f.matchers = append(f.matchers, &BoundaryMatcher{keyword: kw, pattern: re})
	}
	return f, nil
}

func (f *Filter) Matchers() []Matcher {
	return f.matchers
}

// Matches reports whether any keyword matches the name or the description.
func (f *Filter) Matches(name, description string) bool {
	return lo.SomeBy(f.matchers, func(m Matcher) bool {
		return m.Match(name) || m.Match(description)
	})
}

// MatchedKeywords returns every keyword that matches, in configured order.
func (f *Filter) MatchedKeywords(name, description string) []string {
	var matched []string
	for _, m := range f.matchers {
		if m.Match(name) || m.Match(description) {
			matched = append(matched, m.Keyword())
		}
	}
	return matched
}

// Apply keeps the matching groups in order and records their matched keywords.
func (f *Filter) Apply(details []types.GroupDetail) []types.GroupDetail {
	var out []types.GroupDetail
	for _, d := range details {
		if !f.Matches(d.Name, d.Description) {
			continue
		}
		d.MatchedKeywords = f.MatchedKeywords(d.Name, d.Description)
		out = append(out, d)
	}
	return out
}
