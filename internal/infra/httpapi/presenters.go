package httpapi

import (
	"time"

	"outreach_tracker/internal/app"
	"outreach_tracker/internal/domain/directory"
	"outreach_tracker/internal/domain/outreach"
	"outreach_tracker/internal/domain/tenant"

	"github.com/google/uuid"
)

// Calendar dates travel as YYYY-MM-DD, timestamps as RFC 3339.

type tenantJSON struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	TelegramChatID *int64    `json:"telegram_chat_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func presentTenant(t *tenant.Tenant) tenantJSON {
	out := tenantJSON{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt}
	if t.TelegramChatID.Valid {
		id := t.TelegramChatID.Int64
		out.TelegramChatID = &id
	}
	return out
}

type cadenceJSON struct {
	Offsets   []int      `json:"offsets"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func presentCadence(c *outreach.Cadence) cadenceJSON {
	out := cadenceJSON{Offsets: c.Offsets}
	if !c.UpdatedAt.IsZero() {
		out.UpdatedAt = &c.UpdatedAt
	}
	return out
}

type followUpJSON struct {
	ID              uuid.UUID  `json:"id"`
	Sequence        int        `json:"sequence"`
	Status          string     `json:"status"`
	ScheduledDate   string     `json:"scheduled_date"`
	OriginalDueDate string     `json:"original_due_date"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

func presentFollowUp(f *outreach.FollowUp) followUpJSON {
	out := followUpJSON{
		ID:              f.ID,
		Sequence:        f.Sequence,
		Status:          string(f.Status),
		ScheduledDate:   f.ScheduledDate.Format(time.DateOnly),
		OriginalDueDate: f.OriginalDueDate.Format(time.DateOnly),
	}
	if f.CompletedAt.Valid {
		out.CompletedAt = &f.CompletedAt.Time
	}
	return out
}

type recordJSON struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	CounterpartName string     `json:"counterpart_name,omitempty"`
	AnchorDate      string     `json:"anchor_date"`
	Status          string     `json:"status"`
	StatusLabel     string     `json:"status_label"`
	Tags            []string   `json:"tags"`
	IsFavorite      bool       `json:"is_favorite"`
	FavoritedAt     *time.Time `json:"favorited_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func presentRecord(r *outreach.Record) recordJSON {
	out := recordJSON{
		ID:              r.ID,
		Title:           r.Title,
		CounterpartName: r.CounterpartName,
		AnchorDate:      r.AnchorDate.Format(time.DateOnly),
		Status:          string(r.Status),
		StatusLabel:     r.Status.Label(),
		Tags:            r.Tags,
		IsFavorite:      r.IsFavorite,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if r.FavoritedAt.Valid {
		out.FavoritedAt = &r.FavoritedAt.Time
	}
	return out
}

type entryJSON struct {
	Record    recordJSON     `json:"record"`
	FollowUps []followUpJSON `json:"follow_ups"`
	Next      *followUpJSON  `json:"next_follow_up,omitempty"`
	// UnloggableID is the follow-up a client offers to undo today.
	UnloggableID *uuid.UUID `json:"unloggable_follow_up_id,omitempty"`
}

func presentEntry(e outreach.Entry, today time.Time) entryJSON {
	out := entryJSON{Record: presentRecord(e.Record), FollowUps: make([]followUpJSON, 0, len(e.FollowUps))}
	for _, f := range e.FollowUps {
		out.FollowUps = append(out.FollowUps, presentFollowUp(f))
	}
	if e.Next != nil {
		next := presentFollowUp(e.Next)
		out.Next = &next
	}
	if u := outreach.UnloggableToday(e.FollowUps, today); u != nil {
		out.UnloggableID = &u.ID
	}
	return out
}

func presentEntries(entries []outreach.Entry, today time.Time) []entryJSON {
	out := make([]entryJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, presentEntry(e, today))
	}
	return out
}

type boardJSON struct {
	Sort           string      `json:"sort"`
	Items          []entryJSON `json:"items,omitempty"`
	ActionRequired []entryJSON `json:"action_required,omitempty"`
	Upcoming       []entryJSON `json:"upcoming,omitempty"`
}

func presentBoard(b outreach.Board, today time.Time) boardJSON {
	out := boardJSON{Sort: string(b.Mode)}
	if b.Mode == outreach.SortNextFollowUp {
		out.ActionRequired = presentEntries(b.ActionRequired, today)
		out.Upcoming = presentEntries(b.Upcoming, today)
		return out
	}
	out.Items = presentEntries(b.Items, today)
	return out
}

type followUpResultJSON struct {
	Record         recordJSON   `json:"record"`
	FollowUp       followUpJSON `json:"follow_up"`
	PreviousStatus string       `json:"previous_status"`
	StatusChanged  bool         `json:"status_changed"`
}

func presentFollowUpResult(r *app.FollowUpResult) followUpResultJSON {
	return followUpResultJSON{
		Record:         presentRecord(r.Record),
		FollowUp:       presentFollowUp(r.FollowUp),
		PreviousStatus: string(r.PreviousStatus),
		StatusChanged:  r.StatusChanged,
	}
}

type companyJSON struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Website   string    `json:"website,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func presentCompany(c *directory.Company) companyJSON {
	return companyJSON{ID: c.ID, Name: c.Name, Website: c.Website.String, CreatedAt: c.CreatedAt}
}

type contactJSON struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	CompanyID *uuid.UUID `json:"company_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func presentContact(c *directory.Contact) contactJSON {
	out := contactJSON{ID: c.ID, Name: c.Name, Email: c.Email.String, CreatedAt: c.CreatedAt}
	if c.CompanyID.Valid {
		id := c.CompanyID.UUID
		out.CompanyID = &id
	}
	return out
}
