package regexp

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/prometheus/prometheus/model/labels"
)

// Regexp matches a value against any of a set of patterns. Patterns are fully
// anchored, like Prometheus label matchers, unless built with NewPrefixRegexp.
// A Regexp holds no mutable state and is safe for concurrent use.
type Regexp struct {
	matchers    []*labels.FastRegexMatcher
	shouldMatch bool
}

func NewRegexp(regexps []string, shouldMatch bool) (*Regexp, error) {
	matchers := make([]*labels.FastRegexMatcher, 0, len(regexps))

	for _, r := range regexps {
		m, err := labels.NewFastRegexMatcher(r)
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, m)
	}

	return &Regexp{
		matchers:    matchers,
		shouldMatch: shouldMatch,
	}, nil
}

// NewPrefixRegexp builds a matcher that only anchors the pattern at the start of
// the value, so "ab" matches "abc". caseInsensitive adds the (?i) flag.
func NewPrefixRegexp(pattern string, caseInsensitive bool) (*Regexp, error) {
	flags := "s"
	if caseInsensitive {
		flags = "is"
	}
	return NewRegexp([]string{fmt.Sprintf("(?%s:%s).*", flags, pattern)}, true)
}

func (r *Regexp) Match(b []byte) bool {
	return r.MatchString(unsafe.String(unsafe.SliceData(b), len(b)))
}

func (r *Regexp) MatchString(s string) bool {
	for _, m := range r.matchers {
		if m.MatchString(s) == r.shouldMatch {
			return true
		}
	}
	return false
}

func (r *Regexp) String() string {
	regexps := make([]string, 0, len(r.matchers))
	for _, m := range r.matchers {
		regexps = append(regexps, m.GetRegexString())
	}
	return strings.Join(regexps, ", ")
}
