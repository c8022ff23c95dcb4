package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/domain"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

func adminCaller() auth.Caller {
	return auth.Caller{Role: domain.RoleAdmin, UserID: "admin-1"}
}

func requesterCaller(userID string) auth.Caller {
	return auth.Caller{Role: domain.RoleUser, UserID: userID}
}

func technicianCaller(technicianID string) auth.Caller {
	return auth.Caller{Role: domain.RoleTechnician, UserID: "u-" + technicianID, TechnicianID: &technicianID}
}

func seedTicket(t *testing.T, repo *fakeTicketRepo, mutate func(*domain.Ticket)) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		RequesterID: "requester-1",
		Subject:     "VPN drops every hour",
		Status:      domain.TicketStatusNew,
		Priority:    domain.TicketPriorityNormal,
		Impact:      domain.TicketImpactLow,
		Urgency:     domain.TicketUrgencyNormal,
	}
	if mutate != nil {
		mutate(ticket)
	}
	require.NoError(t, repo.Create(context.Background(), ticket, []domain.AuditEntry{
		auditEntry("", domain.AuditTicketCreated, nil, strPtr("new"), "Ticket created", "user:requester-1"),
	}))
	return ticket
}

func newLifecycleService(repo *fakeTicketRepo, now func() time.Time) *LifecycleService {
	return NewLifecycleService(LifecycleDependencies{
		TicketRepo: repo,
		Logger:     zap.NewNop(),
		Now:        now,
	})
}

func TestChangeStatusHappyPath(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newLifecycleService(repo, nil)
	tech := "tech-1"
	seeded := seedTicket(t, repo, func(tk *domain.Ticket) {
		tk.Status = domain.TicketStatusAssigned
		tk.AssignedTechnicianID = &tech
	})

	ticket, err := svc.ChangeStatus(context.Background(), technicianCaller(tech), seeded.ID, domain.TicketStatusInProgress, "starting work")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)

	ticket, err = svc.ChangeStatus(context.Background(), technicianCaller(tech), seeded.ID, domain.TicketStatusResolved, "patched client config")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, ticket.Status)
	require.NotNil(t, ticket.ResolvedAt)

	actions := repo.auditActions(seeded.ID)
	assert.Equal(t, []domain.AuditAction{
		domain.AuditTicketCreated,
		domain.AuditStatusChanged,
		domain.AuditStatusChanged,
	}, actions)
}

func TestChangeStatusRejectsIllegalTransition(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newLifecycleService(repo, nil)
	seeded := seedTicket(t, repo, func(tk *domain.Ticket) {
		tk.Status = domain.TicketStatusClosed
	})

	_, err := svc.ChangeStatus(context.Background(), adminCaller(), seeded.ID, domain.TicketStatusInProgress, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))

	// Rejected transitions must leave no trace in the ledger.
	assert.Len(t, repo.auditActions(seeded.ID), 1)
}

func TestChangeStatusRequesterLimits(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newLifecycleService(repo, nil)
	tech := "tech-1"

	inProgress := seedTicket(t, repo, func(tk *domain.Ticket) {
		tk.Status = domain.TicketStatusInProgress
		tk.AssignedTechnicianID = &tech
	})
	_, err := svc.ChangeStatus(context.Background(), requesterCaller("requester-1"), inProgress.ID, domain.TicketStatusResolved, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	assert.Len(t, repo.auditActions(inProgress.ID), 1)

	resolved := seedTicket(t, repo, func(tk *domain.Ticket) {
		tk.Status = domain.TicketStatusResolved
		tk.AssignedTechnicianID = &tech
	})
	ticket, err := svc.ChangeStatus(context.Background(), requesterCaller("requester-1"), resolved.ID, domain.TicketStatusClosed, "works now")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, ticket.Status)
	require.NotNil(t, ticket.ClosedAt)

	// A different requester cannot touch someone else's ticket.
	other := seedTicket(t, repo, func(tk *domain.Ticket) {
		tk.Status = domain.TicketStatusResolved
	})
	_, err = svc.ChangeStatus(context.Background(), requesterCaller("someone-else"), other.ID, domain.TicketStatusClosed, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestChangeStatusTechnicianMustBeAssignee(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newLifecycleService(repo, nil)
	assignee := "tech-1"
	seeded := seedTicket(t, repo, func(tk *domain.Ticket) {
		tk.Status = domain.TicketStatusAssigned
		tk.AssignedTechnicianID = &assignee
	})

	_, err := svc.ChangeStatus(context.Background(), technicianCaller("tech-2"), seeded.ID, domain.TicketStatusInProgress, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestResolveAfterDueDateFlagsSLA(t *testing.T) {
	repo := newFakeTicketRepo()
	due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	late := due.Add(3 * time.Hour)
	svc := newLifecycleService(repo, func() time.Time { return late })

	seeded := seedTicket(t, repo, func(tk *domain.Ticket) {
		tk.Status = domain.TicketStatusInProgress
		tk.ResolutionDue = &due
	})

	ticket, err := svc.ChangeStatus(context.Background(), adminCaller(), seeded.ID, domain.TicketStatusResolved, "")
	require.NoError(t, err)
	assert.True(t, ticket.SLAViolated)
	require.NotNil(t, ticket.ResolvedAt)
	assert.True(t, ticket.ResolvedAt.Equal(late))
}

func TestCloseTicketStoresFeedback(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newLifecycleService(repo, nil)
	seeded := seedTicket(t, repo, func(tk *domain.Ticket) {
		tk.Status = domain.TicketStatusResolved
	})

	rating := 4
	ticket, err := svc.CloseTicket(context.Background(), requesterCaller("requester-1"), seeded.ID, strPtr("fixed quickly"), &rating)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, ticket.Status)
	require.NotNil(t, ticket.Feedback)
	assert.Equal(t, "fixed quickly", *ticket.Feedback)
	require.NotNil(t, ticket.SatisfactionRating)
	assert.Equal(t, 4, *ticket.SatisfactionRating)

	actions := repo.auditActions(seeded.ID)
	assert.Equal(t, []domain.AuditAction{
		domain.AuditTicketCreated,
		domain.AuditStatusChanged,
		domain.AuditTicketClosed,
	}, actions)
}

func TestCloseTicketRejectsBadRating(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newLifecycleService(repo, nil)
	seeded := seedTicket(t, repo, func(tk *domain.Ticket) {
		tk.Status = domain.TicketStatusResolved
	})

	for _, rating := range []int{0, 6, -1} {
		r := rating
		_, err := svc.CloseTicket(context.Background(), requesterCaller("requester-1"), seeded.ID, nil, &r)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	}
}

func TestCloseTicketDoubleCloseRejected(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newLifecycleService(repo, nil)
	seeded := seedTicket(t, repo, func(tk *domain.Ticket) {
		tk.Status = domain.TicketStatusResolved
	})

	_, err := svc.CloseTicket(context.Background(), requesterCaller("requester-1"), seeded.ID, nil, nil)
	require.NoError(t, err)

	_, err = svc.CloseTicket(context.Background(), requesterCaller("requester-1"), seeded.ID, nil, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
}

func TestReopenTicket(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newLifecycleService(repo, nil)
	resolvedAt := time.Now()
	rating := 2
	seeded := seedTicket(t, repo, func(tk *domain.Ticket) {
		tk.Status = domain.TicketStatusClosed
		tk.ResolvedAt = &resolvedAt
		tk.ClosedAt = &resolvedAt
		tk.SatisfactionRating = &rating
		tk.Feedback = strPtr("did not actually work")
	})

	ticket, err := svc.ReopenTicket(context.Background(), requesterCaller("requester-1"), seeded.ID, "issue came back")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	assert.Equal(t, 1, ticket.ReopenedCount)
	assert.Nil(t, ticket.ResolvedAt)
	assert.Nil(t, ticket.ClosedAt)
	assert.Nil(t, ticket.SatisfactionRating)
	assert.Nil(t, ticket.Feedback)

	actions := repo.auditActions(seeded.ID)
	assert.Equal(t, domain.AuditTicketReactivated, actions[len(actions)-1])
}

func TestReopenTicketOnlyFromResolvedOrClosed(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newLifecycleService(repo, nil)
	seeded := seedTicket(t, repo, nil)

	_, err := svc.ReopenTicket(context.Background(), adminCaller(), seeded.ID, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
}

func TestReopenTicketOwnershipEnforced(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newLifecycleService(repo, nil)
	seeded := seedTicket(t, repo, func(tk *domain.Ticket) {
		tk.Status = domain.TicketStatusResolved
	})

	_, err := svc.ReopenTicket(context.Background(), requesterCaller("stranger"), seeded.ID, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
}

func TestCancelTicketAdminOnly(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newLifecycleService(repo, nil)
	seeded := seedTicket(t, repo, nil)

	_, err := svc.CancelTicket(context.Background(), technicianCaller("tech-1"), seeded.ID, "duplicate")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	ticket, err := svc.CancelTicket(context.Background(), adminCaller(), seeded.ID, "duplicate of SD-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCancelled, ticket.Status)

	_, err = svc.CancelTicket(context.Background(), adminCaller(), seeded.ID, "again")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
}

// staleReadTicketRepo simulates a concurrent writer by handing out reads whose
// UpdatedAt no longer matches the stored row.
type staleReadTicketRepo struct {
	*fakeTicketRepo
}

func (s *staleReadTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.fakeTicketRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ticket.UpdatedAt = ticket.UpdatedAt.Add(-time.Minute)
	return ticket, nil
}

func TestChangeStatusConcurrentModification(t *testing.T) {
	base := newFakeTicketRepo()
	seeded := seedTicket(t, base, func(tk *domain.Ticket) {
		tk.Status = domain.TicketStatusResolved
	})

	svc := newLifecycleService(base, nil)
	svc.tickets = &staleReadTicketRepo{fakeTicketRepo: base}

	_, err := svc.ChangeStatus(context.Background(), adminCaller(), seeded.ID, domain.TicketStatusClosed, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
	assert.Len(t, base.auditActions(seeded.ID), 1)
}
