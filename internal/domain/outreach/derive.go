// internal/domain/outreach/derive.go
package outreach

// CountSent returns the number of completed follow-ups.
func CountSent(followUps []*FollowUp) int {
	n := 0
	for _, f := range followUps {
		if f.Status == FollowUpSent {
			n++
		}
	}
	return n
}

// DeriveStatus maps the number of sent follow-ups onto the automatic sub-chain.
// A record outside the chain keeps its status: manual choices are never overridden.
// The second return value is true only when the status should be written.
func DeriveStatus(current Status, sent int) (Status, bool) {
	if !current.IsAutomatic() {
		return current, false
	}
	if sent < 0 {
		sent = 0
	}
	if sent >= len(chainByCount) {
		sent = len(chainByCount) - 1
	}
	next := chainByCount[sent]
	return next, next != current
}
