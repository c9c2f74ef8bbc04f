package referral

import (
	"net/url"
	"regexp"
	"sync"

	perr "refguard/internal/platform/errors"
)

// defaultForbidden are shapes of a direct partner link that must never be visible
// outside sourceUrl: affiliate ids in the query and affiliate path segments
var defaultForbidden = []string{
	`(?i)[?&](aff|aff_id|affid|affiliate|affiliate_id|ref_id|refid|rfsn|irclickid|clickid|partner_id|partnerid)=`,
	`(?i)/(aff|affiliates?|partners?)/[^/?#]+`,
	`(?i)[?&]utm_medium=(affiliate|partner)`,
}

// Patterns is a compiled set of forbidden raw-affiliate regexes
type Patterns struct {
	res []*regexp.Regexp
}

var (
	defaultOnce sync.Once
	defaultPats *Patterns
)

// DefaultPatterns returns the built-in forbidden set
func DefaultPatterns() *Patterns {
	defaultOnce.Do(func() {
		p, err := CompilePatterns()
		if err != nil {
			panic(err)
		}
		defaultPats = p
	})
	return defaultPats
}

// CompilePatterns compiles the built-in set plus extra expressions
func CompilePatterns(extra ...string) (*Patterns, error) {
	p := &Patterns{}
	for _, expr := range append(append([]string{}, defaultForbidden...), extra...) {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, perr.WithField(perr.Wrapf(err, perr.ErrorCodeValidation, "bad forbidden pattern %q", expr), "REFCHECK_FORBIDDEN")
		}
		p.res = append(p.res, re)
	}
	return p, nil
}

// Len returns the number of patterns
func (p *Patterns) Len() int { return len(p.res) }

// Match checks s and its percent-decoded forms (up to two levels, enough for a
// masked link nested in a track link) and returns the first matching expression
func (p *Patterns) Match(s string) (string, bool) {
	for _, v := range decodings(s) {
		for _, re := range p.res {
			if re.MatchString(v) {
				return re.String(), true
			}
		}
	}
	return "", false
}

func decodings(s string) []string {
	out := []string{s}
	cur := s
	for range 2 {
		d, err := url.QueryUnescape(cur)
		if err != nil || d == cur {
			break
		}
		out = append(out, d)
		cur = d
	}
	return out
}
