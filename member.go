package segsync

import "sort"

// MemberSet maps a member identity key to the member's email address.
// Depending on the configured identity mode the key is either the
// vendor-assigned profile id or the email itself.
type MemberSet = map[string]string

// Direction is the kind of membership transition carried by a lifecycle event.
type Direction string

const (
	DirectionJoined Direction = "joined"
	DirectionLeft   Direction = "left"
)

// directionFor maps the emitter's joining flag to a Direction.
func directionFor(joining bool) Direction {
	if joining {
		return DirectionJoined
	}
	return DirectionLeft
}

// Delta describes the membership changes between a fetched set and the
// cached snapshot. Joined and Left are disjoint by construction: both are
// computed from the same two sets via complementary set difference.
type Delta struct {
	Joined []string
	Left   []string
}

// Empty reports whether the delta contains no changes.
func (d Delta) Empty() bool {
	return len(d.Joined) == 0 && len(d.Left) == 0
}

// Diff computes which identities joined (present in fetched, absent from
// cached) and which left (present in cached, absent from fetched). Both
// slices are sorted so log output is stable; emission order carries no
// meaning.
func Diff(fetched MemberSet, cached []string) Delta {
	known := make(map[string]struct{}, len(cached))
	for _, id := range cached {
		known[id] = struct{}{}
	}

	var d Delta
	for id := range fetched {
		if _, ok := known[id]; !ok {
			d.Joined = append(d.Joined, id)
		}
	}
	for id := range known {
		if _, ok := fetched[id]; !ok {
			d.Left = append(d.Left, id)
		}
	}

	sort.Strings(d.Joined)
	sort.Strings(d.Left)
	return d
}
