// Package memory is an in-process store implementing every repository interface.
// It copies values in and out so callers observe the same semantics as the SQL store.
package memory

import (
	"context"
	"sort"
	"sync"

	"outreach_tracker/internal/domain/directory"
	"outreach_tracker/internal/domain/outreach"
	"outreach_tracker/internal/domain/subscription"
	"outreach_tracker/internal/domain/tenant"

	"github.com/google/uuid"
)

type Store struct {
	mu             sync.Mutex
	tenants        map[uuid.UUID]tenant.Tenant
	records        map[uuid.UUID]outreach.Record
	followUps      map[uuid.UUID]outreach.FollowUp
	recordContacts map[uuid.UUID][]uuid.UUID
	cadences       map[uuid.UUID]outreach.Cadence
	subscriptions  map[uuid.UUID]subscription.State
	payments       map[uuid.UUID]map[string]bool
	companies      map[uuid.UUID]directory.Company
	contacts       map[uuid.UUID]directory.Contact
	// order keeps insertion order for tenants and records so listings are stable.
	order map[uuid.UUID]int64
	seq   int64

	// FailReplaceSchedule makes the next ReplaceSchedule or UpdateRecordSchedule return this
	// error and write nothing, like a rolled back transaction.
	FailReplaceSchedule error
}

func NewStore() *Store {
	return &Store{
		tenants:        make(map[uuid.UUID]tenant.Tenant),
		records:        make(map[uuid.UUID]outreach.Record),
		followUps:      make(map[uuid.UUID]outreach.FollowUp),
		recordContacts: make(map[uuid.UUID][]uuid.UUID),
		cadences:       make(map[uuid.UUID]outreach.Cadence),
		subscriptions:  make(map[uuid.UUID]subscription.State),
		payments:       make(map[uuid.UUID]map[string]bool),
		companies:      make(map[uuid.UUID]directory.Company),
		contacts:       make(map[uuid.UUID]directory.Contact),
		order:          make(map[uuid.UUID]int64),
	}
}

func (s *Store) remember(id uuid.UUID) {
	if _, ok := s.order[id]; ok {
		return
	}
	s.seq++
	s.order[id] = s.seq
}

var (
	_ outreach.Repository       = (*Store)(nil)
	_ subscription.Repository   = (*Store)(nil)
	_ subscription.UsageCounter = (*Store)(nil)
	_ tenant.Repository         = (*Store)(nil)
	_ directory.Repository      = (*Store)(nil)
)

func copyRecord(r outreach.Record) *outreach.Record {
	r.Tags = append([]string(nil), r.Tags...)
	return &r
}

func copyFollowUp(f outreach.FollowUp) *outreach.FollowUp {
	return &f
}

// --- Tenants ---

func (s *Store) Create(ctx context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.TelegramChatID.Valid {
		for _, existing := range s.tenants {
			if existing.TelegramChatID.Valid && existing.TelegramChatID.Int64 == t.TelegramChatID.Int64 {
				return tenant.ErrDuplicateTelegramChat
			}
		}
	}
	s.tenants[t.ID] = *t
	s.remember(t.ID)
	return nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return &t, nil
}

func (s *Store) GetByTelegramChatID(ctx context.Context, chatID int64) (*tenant.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tenants {
		if t.TelegramChatID.Valid && t.TelegramChatID.Int64 == chatID {
			t := t
			return &t, nil
		}
	}
	return nil, tenant.ErrTenantNotFound
}

func (s *Store) Update(ctx context.Context, t *tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[t.ID]; !ok {
		return tenant.ErrTenantNotFound
	}
	if t.TelegramChatID.Valid {
		for id, existing := range s.tenants {
			if id != t.ID && existing.TelegramChatID.Valid && existing.TelegramChatID.Int64 == t.TelegramChatID.Int64 {
				return tenant.ErrDuplicateTelegramChat
			}
		}
	}
	s.tenants[t.ID] = *t
	return nil
}

func (s *Store) listTenants(filter func(tenant.Tenant) bool) []*tenant.Tenant {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*tenant.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		if filter(t) {
			t := t
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.order[out[i].ID] < s.order[out[j].ID] })
	return out
}

func (s *Store) ListAll(ctx context.Context) ([]*tenant.Tenant, error) {
	return s.listTenants(func(tenant.Tenant) bool { return true }), nil
}

func (s *Store) ListWithTelegram(ctx context.Context) ([]*tenant.Tenant, error) {
	return s.listTenants(func(t tenant.Tenant) bool { return t.TelegramChatID.Valid }), nil
}

// --- Outreach records ---

func (s *Store) CreateRecord(ctx context.Context, rec *outreach.Record, schedule []*outreach.FollowUp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = *copyRecord(*rec)
	s.remember(rec.ID)
	for _, f := range schedule {
		s.followUps[f.ID] = *f
	}
	return nil
}

func (s *Store) GetRecord(ctx context.Context, tenantID, id uuid.UUID) (*outreach.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok || r.TenantID != tenantID {
		return nil, outreach.ErrRecordNotFound
	}
	return copyRecord(r), nil
}

func (s *Store) UpdateRecord(ctx context.Context, rec *outreach.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[rec.ID]
	if !ok || existing.TenantID != rec.TenantID {
		return outreach.ErrRecordNotFound
	}
	updated := *copyRecord(*rec)
	updated.Status = existing.Status
	s.records[rec.ID] = updated
	return nil
}

func (s *Store) UpdateRecordSchedule(ctx context.Context, rec *outreach.Record, schedule []*outreach.FollowUp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[rec.ID]
	if !ok || existing.TenantID != rec.TenantID {
		return outreach.ErrRecordNotFound
	}
	if err := s.FailReplaceSchedule; err != nil {
		s.FailReplaceSchedule = nil
		return err
	}
	updated := *copyRecord(*rec)
	updated.Status = existing.Status
	s.records[rec.ID] = updated
	s.replaceFollowUps(rec.ID, schedule)
	return nil
}

func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, expected, next outreach.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return false, outreach.ErrRecordNotFound
	}
	if r.Status != expected {
		return false, nil
	}
	r.Status = next
	s.records[id] = r
	return true, nil
}

func (s *Store) DeleteRecord(ctx context.Context, tenantID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok || r.TenantID != tenantID {
		return outreach.ErrRecordNotFound
	}
	delete(s.records, id)
	delete(s.recordContacts, id)
	for fid, f := range s.followUps {
		if f.RecordID == id {
			delete(s.followUps, fid)
		}
	}
	return nil
}

func (s *Store) ListRecords(ctx context.Context, tenantID uuid.UUID) ([]*outreach.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*outreach.Record, 0)
	for _, r := range s.records {
		if r.TenantID == tenantID {
			out = append(out, copyRecord(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.order[out[i].ID] < s.order[out[j].ID] })
	return out, nil
}

// --- Follow-ups ---

func (s *Store) ReplaceSchedule(ctx context.Context, recordID uuid.UUID, schedule []*outreach.FollowUp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[recordID]; !ok {
		return outreach.ErrRecordNotFound
	}
	if err := s.FailReplaceSchedule; err != nil {
		s.FailReplaceSchedule = nil
		return err
	}
	s.replaceFollowUps(recordID, schedule)
	return nil
}

func (s *Store) replaceFollowUps(recordID uuid.UUID, schedule []*outreach.FollowUp) {
	for fid, f := range s.followUps {
		if f.RecordID == recordID {
			delete(s.followUps, fid)
		}
	}
	for _, f := range schedule {
		s.followUps[f.ID] = *f
	}
}

func (s *Store) followUpsOf(recordID uuid.UUID) []*outreach.FollowUp {
	out := make([]*outreach.FollowUp, 0)
	for _, f := range s.followUps {
		if f.RecordID == recordID {
			out = append(out, copyFollowUp(f))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

func (s *Store) ListFollowUps(ctx context.Context, recordID uuid.UUID) ([]*outreach.FollowUp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.followUpsOf(recordID), nil
}

func (s *Store) ListFollowUpsForRecords(ctx context.Context, recordIDs []uuid.UUID) (map[uuid.UUID][]*outreach.FollowUp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID][]*outreach.FollowUp, len(recordIDs))
	for _, id := range recordIDs {
		out[id] = s.followUpsOf(id)
	}
	return out, nil
}

func (s *Store) GetFollowUp(ctx context.Context, id uuid.UUID) (*outreach.FollowUp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.followUps[id]
	if !ok {
		return nil, outreach.ErrFollowUpNotFound
	}
	return copyFollowUp(f), nil
}

func (s *Store) UpdateFollowUp(ctx context.Context, f *outreach.FollowUp, expected outreach.FollowUpStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.followUps[f.ID]
	if !ok {
		return outreach.ErrFollowUpNotFound
	}
	if existing.Status != expected {
		return outreach.ErrFollowUpConflict
	}
	updated := *f
	updated.OriginalDueDate = existing.OriginalDueDate
	updated.RecordID = existing.RecordID
	updated.Sequence = existing.Sequence
	s.followUps[f.ID] = updated
	return nil
}

// --- Contacts on records ---

func (s *Store) LinkContact(ctx context.Context, recordID, contactID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[recordID]
	if !ok {
		return outreach.ErrRecordNotFound
	}
	c, ok := s.contacts[contactID]
	if !ok || c.TenantID != r.TenantID {
		return directory.ErrContactNotFound
	}
	for _, existing := range s.recordContacts[recordID] {
		if existing == contactID {
			return nil
		}
	}
	s.recordContacts[recordID] = append(s.recordContacts[recordID], contactID)
	if r.CounterpartName == "" {
		r.CounterpartName = c.Name
		s.records[recordID] = r
	}
	return nil
}

func (s *Store) ListRecordContacts(ctx context.Context, recordID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uuid.UUID(nil), s.recordContacts[recordID]...), nil
}

// --- Cadence ---

func (s *Store) GetCadence(ctx context.Context, tenantID uuid.UUID) (*outreach.Cadence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cadences[tenantID]
	if !ok {
		return nil, outreach.ErrCadenceNotFound
	}
	c.Offsets = append([]int(nil), c.Offsets...)
	return &c, nil
}

func (s *Store) SaveCadence(ctx context.Context, c *outreach.Cadence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *c
	stored.Offsets = append([]int(nil), c.Offsets...)
	s.cadences[c.TenantID] = stored
	return nil
}

// --- Subscription ---

func (s *Store) GetState(ctx context.Context, tenantID uuid.UUID) (*subscription.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.subscriptions[tenantID]
	if !ok {
		return nil, subscription.ErrStateNotFound
	}
	return &st, nil
}

func (s *Store) SaveState(ctx context.Context, st *subscription.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[st.TenantID] = *st
	return nil
}

func (s *Store) ApplyPayment(ctx context.Context, st *subscription.State, paymentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.payments[st.TenantID][paymentID] {
		return false, nil
	}
	if s.payments[st.TenantID] == nil {
		s.payments[st.TenantID] = make(map[string]bool)
	}
	s.payments[st.TenantID][paymentID] = true
	s.subscriptions[st.TenantID] = *st
	return true, nil
}

func (s *Store) CountResources(ctx context.Context, tenantID uuid.UUID, kind subscription.ResourceKind) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	switch kind {
	case subscription.ResourceOutreachRecords:
		for _, r := range s.records {
			if r.TenantID == tenantID {
				n++
			}
		}
	case subscription.ResourceContacts:
		for _, c := range s.contacts {
			if c.TenantID == tenantID {
				n++
			}
		}
	case subscription.ResourceCompanies:
		for _, c := range s.companies {
			if c.TenantID == tenantID {
				n++
			}
		}
	}
	return n, nil
}

// --- Directory ---

func (s *Store) CreateCompany(ctx context.Context, c *directory.Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[c.ID] = *c
	return nil
}

func (s *Store) GetCompany(ctx context.Context, tenantID, id uuid.UUID) (*directory.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[id]
	if !ok || c.TenantID != tenantID {
		return nil, directory.ErrCompanyNotFound
	}
	return &c, nil
}

func (s *Store) ListCompanies(ctx context.Context, tenantID uuid.UUID) ([]*directory.Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*directory.Company, 0)
	for _, c := range s.companies {
		if c.TenantID == tenantID {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateContact(ctx context.Context, c *directory.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.CompanyID.Valid {
		company, ok := s.companies[c.CompanyID.UUID]
		if !ok || company.TenantID != c.TenantID {
			return directory.ErrCompanyNotFound
		}
	}
	s.contacts[c.ID] = *c
	return nil
}

func (s *Store) GetContact(ctx context.Context, tenantID, id uuid.UUID) (*directory.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok || c.TenantID != tenantID {
		return nil, directory.ErrContactNotFound
	}
	return &c, nil
}

func (s *Store) ListContacts(ctx context.Context, tenantID uuid.UUID) ([]*directory.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*directory.Contact, 0)
	for _, c := range s.contacts {
		if c.TenantID == tenantID {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
