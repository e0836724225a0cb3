package models

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Payload is the opaque versioned object carried by a content item.
type Payload struct {
	// ID identifies the payload, e.g. "genomes/hg19"
	ID string

	// Version is a semantic version ("v1.2.0"). An empty version marks a
	// legacy unversioned identifier that still needs resolving.
	Version string

	// Kind is a free-form type tag used for labeling
	Kind string

	// Attributes holds provider specific metadata
	Attributes map[string]string

	// Refs lists payloads this payload owns or references
	Refs []*Payload
}

// NewPayload creates a new Payload instance
func NewPayload(id, version, kind string) *Payload {
	return &Payload{
		ID:      id,
		Version: version,
		Kind:    kind,
	}
}

// IsLegacy reports whether the payload carries an unversioned identifier
func (p *Payload) IsLegacy() bool {
	return p != nil && p.Version == ""
}

// Key returns the canonical identifier "id@version", or the bare ID for
// legacy payloads.
func (p *Payload) Key() string {
	if p.Version == "" {
		return p.ID
	}
	return p.ID + "@" + p.Version
}

// SplitCanonical splits "id@vX.Y.Z" into its parts. It returns false when
// the version part is missing or not valid semver.
func SplitCanonical(canonical string) (id, version string, ok bool) {
	idx := strings.LastIndex(canonical, "@")
	if idx <= 0 || idx == len(canonical)-1 {
		return "", "", false
	}
	id, version = canonical[:idx], canonical[idx+1:]
	if !semver.IsValid(version) {
		return "", "", false
	}
	return id, semver.Canonical(version), true
}

// Reachable reports whether target is p itself or is transitively
// referenced from p. Payloads match by identity or by equal key. The walk
// keeps a visited set so reference cycles terminate.
func (p *Payload) Reachable(target *Payload) bool {
	if p == nil || target == nil {
		return false
	}

	targetKey := target.Key()
	visited := make(map[*Payload]struct{})
	queue := []*Payload{p}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}

		if current == target || current.Key() == targetKey {
			return true
		}

		for _, ref := range current.Refs {
			if ref != nil {
				queue = append(queue, ref)
			}
		}
	}

	return false
}
