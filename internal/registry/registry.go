// Package registry implements a declarative table of page groups used to
// classify and canonicalize crawled URLs.
package registry

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
)

// ErrUnclassified is returned when a URL matches no declared PageGroup.
var ErrUnclassified = errors.New("url unclassified")

// Canonicalizer rewrites a parsed URL before it is reassembled to a string.
// Canonicalizers are pure: given the same input they always produce the
// same output.
type Canonicalizer func(parsed *url.URL) *url.URL

// GroupedURL is a canonicalized URL paired with the name of the group that
// classified it. Link expansion deduplicates GroupedURLs by URL alone; the
// struct's == compares both fields.
type GroupedURL struct {
	URL       string
	GroupName string
}

// PageGroup is a declarative classification rule: a host plus a path
// pattern, an ordered sequence of canonicalizers, and an optional parent
// group defining the expected graph edge used by link expansion.
// Equality of two groups is by (Host, Name), not by identity, so the
// registry can be reloaded without invalidating persisted group_name
// strings.
//
// PathPattern must be anchored (^...$) by the caller so matching is a
// full match against the URL path.
type PageGroup struct {
	Name           string
	Host           string
	PathPattern    *regexp.Regexp
	Canonicalizers []Canonicalizer
	Parent         *PageGroup
}

// Equal reports whether two groups denote the same logical group.
func (g *PageGroup) Equal(other *PageGroup) bool {
	if g == nil || other == nil {
		return g == other
	}
	return g.Host == other.Host && g.Name == other.Name
}

func (g *PageGroup) matches(parsed *url.URL) bool {
	if parsed.Host != g.Host {
		return false
	}
	return g.PathPattern.MatchString(parsed.Path)
}

func (g *PageGroup) apply(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	for _, canon := range g.Canonicalizers {
		parsed = canon(parsed)
	}
	return parsed.String(), nil
}

// Family is a compile-time-declared, ordered set of PageGroups.
type Family struct {
	groups []*PageGroup
}

// NewFamily builds a Family from an ordered slice of groups. Groups are
// tried in the given order during Resolve, so more specific patterns must
// precede more general ones.
func NewFamily(groups []*PageGroup) *Family {
	return &Family{groups: groups}
}

// Groups returns the declared groups in resolution order.
func (f *Family) Groups() []*PageGroup {
	return f.groups
}

// Find returns the declared group with the given (host, name), or nil.
func (f *Family) Find(host, name string) *PageGroup {
	for _, g := range f.groups {
		if g.Host == host && g.Name == name {
			return g
		}
	}
	return nil
}

// Resolve classifies rawURL against the family's declared groups in
// order, returning the first match. It parses the URL, matches host and
// path against each group's pattern, applies that group's canonicalizers
// in sequence, and reassembles the result. ErrUnclassified is returned
// (wrapped) when no group matches.
func (f *Family) Resolve(rawURL string) (GroupedURL, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return GroupedURL{}, fmt.Errorf("parse url %q: %w", rawURL, err)
	}

	for _, g := range f.groups {
		if !g.matches(parsed) {
			continue
		}
		canonical, err := g.apply(rawURL)
		if err != nil {
			return GroupedURL{}, err
		}
		return GroupedURL{URL: canonical, GroupName: g.Name}, nil
	}

	return GroupedURL{}, fmt.Errorf("%w: %s", ErrUnclassified, rawURL)
}

// ResolveGroup is like Resolve but also returns the matched *PageGroup,
// used by link expansion to compare a candidate child's group against
// its parent declaration.
func (f *Family) ResolveGroup(rawURL string) (GroupedURL, *PageGroup, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return GroupedURL{}, nil, fmt.Errorf("parse url %q: %w", rawURL, err)
	}

	for _, g := range f.groups {
		if !g.matches(parsed) {
			continue
		}
		canonical, err := g.apply(rawURL)
		if err != nil {
			return GroupedURL{}, nil, err
		}
		return GroupedURL{URL: canonical, GroupName: g.Name}, g, nil
	}

	return GroupedURL{}, nil, fmt.Errorf("%w: %s", ErrUnclassified, rawURL)
}
