// Package urlpolicy gates player creation by source URI against
// configured allow/block regex lists.
package urlpolicy

import "regexp"

// Policy is a compiled allow/block regex list. A URI is allowed when it
// matches at least one allow pattern (or the allow list is empty, meaning
// "allow everything") and no block pattern.
type Policy struct {
	allow []*regexp.Regexp
	block []*regexp.Regexp
}

// Compile builds a Policy from string patterns, skipping any pattern that
// fails to compile (logged by the caller) rather than failing the whole
// policy.
func Compile(allow, block []string) (*Policy, []error) {
	var errs []error
	p := &Policy{}
	for _, pat := range allow {
		re, err := regexp.Compile(pat)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p.allow = append(p.allow, re)
	}
	for _, pat := range block {
		re, err := regexp.Compile(pat)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p.block = append(p.block, re)
	}
	return p, errs
}

// Allowed reports whether uri passes the allow/block regex checks.
func (p *Policy) Allowed(uri string) bool {
	if p == nil {
		return true
	}
	for _, re := range p.block {
		if re.MatchString(uri) {
			return false
		}
	}
	if len(p.allow) == 0 {
		return true
	}
	for _, re := range p.allow {
		if re.MatchString(uri) {
			return true
		}
	}
	return false
}
