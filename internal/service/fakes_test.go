package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
)

// fakeTicketRepo keeps tickets and their audit ledgers in memory. It mirrors
// the real repository's contract: writes store copies, every successful
// mutation advances UpdatedAt, and a mismatched expectedUpdatedAt fails with
// ErrStaleTicket without applying anything.
type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]domain.Ticket
	audit   map[string][]domain.AuditEntry
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{
		tickets: make(map[string]domain.Ticket),
		audit:   make(map[string][]domain.AuditEntry),
	}
}

func (f *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket, initial []domain.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	now := time.Now().Truncate(time.Millisecond)
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	f.tickets[ticket.ID] = *ticket
	f.appendLocked(ticket.ID, initial)
	return nil
}

func (f *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := stored
	return &copied, nil
}

func (f *fakeTicketRepo) UpdateWithAudit(ctx context.Context, ticket *domain.Ticket, expectedUpdatedAt time.Time, entries []domain.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if !stored.UpdatedAt.Equal(expectedUpdatedAt) {
		return repository.ErrStaleTicket
	}
	ticket.UpdatedAt = stored.UpdatedAt.Add(time.Second)
	f.tickets[ticket.ID] = *ticket
	f.appendLocked(ticket.ID, entries)
	return nil
}

func (f *fakeTicketRepo) AppendAudit(ctx context.Context, ticketID string, entries []domain.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appendLocked(ticketID, entries)
	return nil
}

func (f *fakeTicketRepo) ListAudit(ctx context.Context, ticketID string, newestFirst bool) ([]domain.AuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := f.audit[ticketID]
	out := make([]domain.AuditEntry, len(stored))
	copy(out, stored)
	if newestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func (f *fakeTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Ticket
	for _, t := range f.tickets {
		if filter.RequesterID != nil && t.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.AssignedTechnicianID != nil {
			if t.AssignedTechnicianID == nil || *t.AssignedTechnicianID != *filter.AssignedTechnicianID {
				continue
			}
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		if filter.SearchTerm != nil && !strings.Contains(strings.ToLower(t.Subject), strings.ToLower(*filter.SearchTerm)) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTicketRepo) ListActiveByTechnician(ctx context.Context, technicianID string) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Ticket
	for _, t := range f.tickets {
		if t.AssignedTechnicianID == nil || *t.AssignedTechnicianID != technicianID {
			continue
		}
		if !domain.IsActiveStatus(t.Status) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTicketRepo) appendLocked(ticketID string, entries []domain.AuditEntry) {
	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.TicketID == "" {
			e.TicketID = ticketID
		}
		if e.Timestamp.IsZero() {
			e.Timestamp = time.Now()
		}
		f.audit[ticketID] = append(f.audit[ticketID], e)
	}
}

func (f *fakeTicketRepo) auditActions(ticketID string) []domain.AuditAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.AuditAction
	for _, e := range f.audit[ticketID] {
		out = append(out, e.Action)
	}
	return out
}

func containsStatus(set []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

type fakeTechnicianRepo struct {
	mu          sync.Mutex
	technicians map[string]domain.Technician
}

func newFakeTechnicianRepo(techs ...domain.Technician) *fakeTechnicianRepo {
	repo := &fakeTechnicianRepo{technicians: make(map[string]domain.Technician)}
	for _, t := range techs {
		repo.technicians[t.ID] = t
	}
	return repo
}

func (f *fakeTechnicianRepo) Create(ctx context.Context, technician *domain.Technician) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if technician.ID == "" {
		technician.ID = uuid.NewString()
	}
	f.technicians[technician.ID] = *technician
	return nil
}

func (f *fakeTechnicianRepo) GetByID(ctx context.Context, id string) (*domain.Technician, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.technicians[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := stored
	return &copied, nil
}

func (f *fakeTechnicianRepo) GetByUserID(ctx context.Context, userID string) (*domain.Technician, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.technicians {
		if t.UserID == userID {
			copied := t
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTechnicianRepo) List(ctx context.Context, filter repository.TechnicianFilter) ([]domain.Technician, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Technician
	for _, t := range f.technicians {
		if filter.ActiveOnly && !t.IsActive {
			continue
		}
		if len(filter.SkillIDs) > 0 && !holdsAnySkill(t, filter.SkillIDs) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTechnicianRepo) ReplaceSkills(ctx context.Context, technicianID string, skills []domain.TechnicianSkill) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.technicians[technicianID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Skills = skills
	f.technicians[technicianID] = stored
	return nil
}

func (f *fakeTechnicianRepo) UpdateAvailability(ctx context.Context, technicianID string, status domain.AvailabilityStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.technicians[technicianID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.AvailabilityStatus = status
	f.technicians[technicianID] = stored
	return nil
}

func holdsAnySkill(t domain.Technician, skillIDs []string) bool {
	for _, id := range skillIDs {
		if _, ok := t.SkillProficiency(id); ok {
			return true
		}
	}
	return false
}

type fakeSkillRepo struct {
	mu     sync.Mutex
	skills map[string]domain.Skill
}

func newFakeSkillRepo(skills ...domain.Skill) *fakeSkillRepo {
	repo := &fakeSkillRepo{skills: make(map[string]domain.Skill)}
	for _, s := range skills {
		repo.skills[s.ID] = s
	}
	return repo
}

func (f *fakeSkillRepo) Create(ctx context.Context, skill *domain.Skill) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if skill.ID == "" {
		skill.ID = uuid.NewString()
	}
	f.skills[skill.ID] = *skill
	return nil
}

func (f *fakeSkillRepo) GetByID(ctx context.Context, id string) (*domain.Skill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.skills[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := stored
	return &copied, nil
}

func (f *fakeSkillRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Skill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Skill
	for _, id := range ids {
		if s, ok := f.skills[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSkillRepo) ListActive(ctx context.Context) ([]domain.Skill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Skill
	for _, s := range f.skills {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeTaskRepo struct {
	mu       sync.Mutex
	tasks    map[string][]domain.Task
	workLogs map[string][]domain.WorkLog
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{
		tasks:    make(map[string][]domain.Task),
		workLogs: make(map[string][]domain.WorkLog),
	}
}

func (f *fakeTaskRepo) CreateTask(ctx context.Context, task *domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	task.CreatedAt = time.Now()
	f.tasks[task.TicketID] = append(f.tasks[task.TicketID], *task)
	return nil
}

func (f *fakeTaskRepo) ListTasksByTicket(ctx context.Context, ticketID string) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Task, len(f.tasks[ticketID]))
	copy(out, f.tasks[ticketID])
	return out, nil
}

func (f *fakeTaskRepo) CreateWorkLog(ctx context.Context, log *domain.WorkLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	log.CreatedAt = time.Now()
	f.workLogs[log.TicketID] = append(f.workLogs[log.TicketID], *log)
	return nil
}

func (f *fakeTaskRepo) ListWorkLogsByTicket(ctx context.Context, ticketID string) ([]domain.WorkLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.WorkLog, len(f.workLogs[ticketID]))
	copy(out, f.workLogs[ticketID])
	return out, nil
}
