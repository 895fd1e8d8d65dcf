// Package eligibility computes which (user, event) pairs should receive an
// invitation but do not yet have one. The computation is a relational
// set-difference over in-memory relations, with no side effects; the postgres
// invitation repository expresses the same predicate as a SQL query.
package eligibility

import (
	"sort"
	"time"
)

// Membership is one (user, group) edge. The membership role does not matter
// for eligibility; any member of an assigned group is reachable.
type Membership struct {
	UserID  string
	GroupID string
}

// Assignment is one (group, event) edge.
type Assignment struct {
	GroupID string
	EventID string
}

// Event carries the two event attributes the predicate depends on.
type Event struct {
	ID              string
	SendInvitations bool
	DeadlineUTC     time.Time
}

// Pair is one (user, event) candidate.
type Pair struct {
	UserID  string
	EventID string
}

// Relations is the input snapshot for one resolver run.
type Relations struct {
	Memberships []Membership
	Assignments []Assignment
	Events      []Event
	// Existing holds the (user, event) pairs that already have an invitation.
	Existing []Pair
}

// Resolve returns the deduplicated set of (user, event) pairs such that the
// user is a member of some group assigned to the event, the event is marked
// for invitation distribution, its deadline has not passed, and no invitation
// exists yet. The result is ordered by (user, event) so runs are
// deterministic. Resolve is idempotent: once the returned pairs are
// materialized as invitations, a second run yields nothing new.
func Resolve(rel Relations, now time.Time) []Pair {
	open := make(map[string]struct{}, len(rel.Events))
	for _, ev := range rel.Events {
		if ev.SendInvitations && !now.After(ev.DeadlineUTC) {
			open[ev.ID] = struct{}{}
		}
	}

	eventsByGroup := make(map[string][]string)
	for _, a := range rel.Assignments {
		if _, ok := open[a.EventID]; ok {
			eventsByGroup[a.GroupID] = append(eventsByGroup[a.GroupID], a.EventID)
		}
	}

	existing := make(map[Pair]struct{}, len(rel.Existing))
	for _, p := range rel.Existing {
		existing[p] = struct{}{}
	}

	// Multiple shared groups yield the same pair once: the set subtraction
	// runs over a map keyed by the pair itself.
	candidates := make(map[Pair]struct{})
	for _, m := range rel.Memberships {
		for _, eventID := range eventsByGroup[m.GroupID] {
			p := Pair{UserID: m.UserID, EventID: eventID}
			if _, ok := existing[p]; ok {
				continue
			}
			candidates[p] = struct{}{}
		}
	}

	pairs := make([]Pair, 0, len(candidates))
	for p := range candidates {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].UserID != pairs[j].UserID {
			return pairs[i].UserID < pairs[j].UserID
		}
		return pairs[i].EventID < pairs[j].EventID
	})
	return pairs
}
