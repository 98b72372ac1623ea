// internal/domain/outreach/status.go
package outreach

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status is the progress state of an outreach record.
type Status string

const (
	StatusWatching        Status = "WATCHING"
	StatusApplied         Status = "APPLIED"
	StatusFirstContact    Status = "FIRST_CONTACT"
	StatusReminder1       Status = "REMINDER_1"
	StatusReminder2       Status = "REMINDER_2"
	StatusReminder3       Status = "REMINDER_3"
	StatusNoResponse      Status = "NO_RESPONSE"
	StatusRepliedPositive Status = "REPLIED_POSITIVE"
	StatusRepliedNegative Status = "REPLIED_NEGATIVE"
	StatusInterviewing    Status = "INTERVIEWING"
	StatusOffer           Status = "OFFER"
	StatusRejected        Status = "REJECTED"
	StatusClosed          Status = "CLOSED"
)

// AllStatuses lists every status in progress order.
var AllStatuses = []Status{
	StatusWatching,
	StatusApplied,
	StatusFirstContact,
	StatusReminder1,
	StatusReminder2,
	StatusReminder3,
	StatusNoResponse,
	StatusRepliedPositive,
	StatusRepliedNegative,
	StatusInterviewing,
	StatusOffer,
	StatusRejected,
	StatusClosed,
}

// automaticChain holds the statuses driven by follow-up completion.
// Everything else is user-set and never recomputed.
var automaticChain = map[Status]bool{
	StatusFirstContact: true,
	StatusReminder1:    true,
	StatusReminder2:    true,
	StatusReminder3:    true,
}

// chainByCount is indexed by the number of sent follow-ups, capped at the last entry.
var chainByCount = []Status{
	StatusFirstContact,
	StatusReminder1,
	StatusReminder2,
	StatusReminder3,
}

// IsAutomatic reports whether s belongs to the completion-driven sub-chain.
func (s Status) IsAutomatic() bool {
	return automaticChain[s]
}

func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus accepts the canonical upper-case name, case-insensitively.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown outreach status %q", raw)
	}
	return s, nil
}

// Label renders the status for people, e.g. "Reminder 1".
func (s Status) Label() string {
	return cases.Title(language.English).String(strings.ReplaceAll(strings.ToLower(string(s)), "_", " "))
}
