// internal/domain/outreach/board.go
package outreach

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"outreach_tracker/internal/domain/clock"
)

// SortMode selects the display ordering of a tenant's records.
type SortMode string

const (
	SortNextFollowUp SortMode = "NEXT_FOLLOW_UP"
	SortAnchorDesc   SortMode = "ANCHOR_DESC"
	SortAnchorAsc    SortMode = "ANCHOR_ASC"
)

// ParseSortMode accepts the canonical names and the short query aliases next|newest|oldest.
// An empty string selects SortNextFollowUp.
func ParseSortMode(raw string) (SortMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "next", "next_follow_up":
		return SortNextFollowUp, nil
	case "newest", "anchor_desc":
		return SortAnchorDesc, nil
	case "oldest", "anchor_asc":
		return SortAnchorAsc, nil
	}
	return "", fmt.Errorf("unknown sort mode %q", raw)
}

// Classification buckets a record under SortNextFollowUp.
type Classification string

const (
	ActionRequired Classification = "ACTION_REQUIRED"
	Upcoming       Classification = "UPCOMING"
)

// NextPending returns the pending follow-up with the earliest scheduled date, ties broken
// by sequence. It returns nil when nothing is pending.
func NextPending(followUps []*FollowUp) *FollowUp {
	var next *FollowUp
	for _, f := range followUps {
		if f.Status != FollowUpPending {
			continue
		}
		if next == nil {
			next = f
			continue
		}
		fd, nd := clock.DateOnly(f.ScheduledDate), clock.DateOnly(next.ScheduledDate)
		if fd.Before(nd) || (fd.Equal(nd) && f.Sequence < next.Sequence) {
			next = f
		}
	}
	return next
}

// Classify compares the next pending follow-up against today at day granularity.
// No pending follow-up lands in Upcoming so the action list never shows false positives.
func Classify(next *FollowUp, today time.Time) Classification {
	if next == nil {
		return Upcoming
	}
	if !clock.DateOnly(next.ScheduledDate).After(clock.DateOnly(today)) {
		return ActionRequired
	}
	return Upcoming
}

// UnloggableToday returns the sent follow-up completed today with the highest sequence,
// which is what a UI offers to undo. The core itself allows unlogging any sent follow-up.
func UnloggableToday(followUps []*FollowUp, today time.Time) *FollowUp {
	day := clock.DateOnly(today)
	var last *FollowUp
	for _, f := range followUps {
		if f.Status != FollowUpSent || !clock.DateOnly(f.ScheduledDate).Equal(day) {
			continue
		}
		if last == nil || f.Sequence > last.Sequence {
			last = f
		}
	}
	return last
}

// Entry is a record with its schedule, as read from the store.
type Entry struct {
	Record    *Record
	FollowUps []*FollowUp
	Next      *FollowUp
}

// NewEntry sorts followUps by sequence and resolves the next pending one.
func NewEntry(record *Record, followUps []*FollowUp) Entry {
	sorted := make([]*FollowUp, len(followUps))
	copy(sorted, followUps)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })
	return Entry{Record: record, FollowUps: sorted, Next: NextPending(sorted)}
}

// Board is the arranged view of a tenant's records. ActionRequired and Upcoming are only
// populated for SortNextFollowUp; Items always holds the full ordering.
type Board struct {
	Mode           SortMode
	Items          []Entry
	ActionRequired []Entry
	Upcoming       []Entry
}

// BuildBoard orders entries for display. Sorting is stable on input order.
func BuildBoard(entries []Entry, mode SortMode, today time.Time) Board {
	items := make([]Entry, len(entries))
	copy(items, entries)

	switch mode {
	case SortAnchorDesc:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Record.AnchorDate.After(items[j].Record.AnchorDate)
		})
	case SortAnchorAsc:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Record.AnchorDate.Before(items[j].Record.AnchorDate)
		})
	default:
		mode = SortNextFollowUp
		sort.SliceStable(items, func(i, j int) bool {
			return lessByNextFollowUp(items[i], items[j])
		})
	}

	board := Board{Mode: mode, Items: items}
	if mode != SortNextFollowUp {
		return board
	}
	board.ActionRequired = make([]Entry, 0)
	board.Upcoming = make([]Entry, 0)
	for _, e := range items {
		if Classify(e.Next, today) == ActionRequired {
			board.ActionRequired = append(board.ActionRequired, e)
		} else {
			board.Upcoming = append(board.Upcoming, e)
		}
	}
	return board
}

// lessByNextFollowUp puts records with a pending follow-up first, earliest date first;
// fully worked records follow, most recent anchor first.
func lessByNextFollowUp(a, b Entry) bool {
	switch {
	case a.Next != nil && b.Next == nil:
		return true
	case a.Next == nil && b.Next != nil:
		return false
	case a.Next != nil && b.Next != nil:
		return clock.DateOnly(a.Next.ScheduledDate).Before(clock.DateOnly(b.Next.ScheduledDate))
	default:
		return a.Record.AnchorDate.After(b.Record.AnchorDate)
	}
}
