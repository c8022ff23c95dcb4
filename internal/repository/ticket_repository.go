package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// ErrStaleTicket signals a lost-update race: the ticket changed between the
// caller's read and its write attempt.
var ErrStaleTicket = errors.New("ticket modified concurrently")

// TicketFilter captures listing parameters.
type TicketFilter struct {
	RequesterID          *string
	AssignedTechnicianID *string
	Statuses             []domain.TicketStatus
	Priorities           []domain.TicketPriority
	SLAViolated          *bool
	RequiredSkillIDs     []string
	SearchTerm           *string
	CreatedFrom          *time.Time
	CreatedTo            *time.Time
	Limit                int
	Offset               int
}

// TicketRepository encapsulates ticket persistence. UpdateWithAudit is the
// only mutation path after creation: the field changes and the audit rows
// land in one transaction or not at all.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket, initial []domain.AuditEntry) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	UpdateWithAudit(ctx context.Context, ticket *domain.Ticket, expectedUpdatedAt time.Time, entries []domain.AuditEntry) error
	AppendAudit(ctx context.Context, ticketID string, entries []domain.AuditEntry) error
	ListAudit(ctx context.Context, ticketID string, newestFirst bool) ([]domain.AuditEntry, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListActiveByTechnician(ctx context.Context, technicianID string) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, external_key, requester_id, assigned_technician_id, subject, description,
       status, priority, impact, urgency, sla_violated, resolution_due, escalation_count,
       reopened_count, satisfaction_rating, feedback, justification, resolved_at, closed_at,
       created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket, initial []domain.AuditEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO tickets (external_key, requester_id, assigned_technician_id, subject, description,
            status, priority, impact, urgency, sla_violated, resolution_due, justification)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.RequesterID,
		ticket.AssignedTechnicianID,
		ticket.Subject,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Impact,
		ticket.Urgency,
		ticket.SLAViolated,
		ticket.ResolutionDue,
		ticket.Justification,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return err
	}

	if err := replaceTicketSets(ctx, tx, ticket); err != nil {
		return err
	}
	if err := insertAuditEntries(ctx, tx, ticket.ID, initial); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}

	if err := r.loadSets(ctx, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// UpdateWithAudit applies field changes and appends audit rows as one atomic
// unit. The ticket row is locked for the duration; a mismatched updated_at
// means another writer won the race and the caller gets ErrStaleTicket with
// nothing applied.
func (r *ticketRepository) UpdateWithAudit(ctx context.Context, ticket *domain.Ticket, expectedUpdatedAt time.Time, entries []domain.AuditEntry) error {
	if len(entries) == 0 {
		return apperrors.NewInternalError(errors.New("mutation without audit entries"))
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var current time.Time
	if err := tx.QueryRow(ctx, `SELECT updated_at FROM tickets WHERE id=$1 FOR UPDATE`, ticket.ID).Scan(&current); err != nil {
		return err
	}
	if !current.Equal(expectedUpdatedAt) {
		return ErrStaleTicket
	}

	const query = `
        UPDATE tickets SET assigned_technician_id=$1, subject=$2, description=$3, status=$4,
            priority=$5, impact=$6, urgency=$7, sla_violated=$8, resolution_due=$9,
            escalation_count=$10, reopened_count=$11, satisfaction_rating=$12, feedback=$13,
            justification=$14, resolved_at=$15, closed_at=$16, updated_at=NOW()
        WHERE id=$17
        RETURNING updated_at`
	if err := tx.QueryRow(ctx, query,
		ticket.AssignedTechnicianID,
		ticket.Subject,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Impact,
		ticket.Urgency,
		ticket.SLAViolated,
		ticket.ResolutionDue,
		ticket.EscalationCount,
		ticket.ReopenedCount,
		ticket.SatisfactionRating,
		ticket.Feedback,
		ticket.Justification,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt); err != nil {
		return err
	}

	if err := replaceTicketSets(ctx, tx, ticket); err != nil {
		return err
	}
	if err := insertAuditEntries(ctx, tx, ticket.ID, entries); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// AppendAudit records entries without touching ticket fields. Used for
// outcomes that are pure ledger events, like a failed external assignment
// attempt.
func (r *ticketRepository) AppendAudit(ctx context.Context, ticketID string, entries []domain.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := insertAuditEntries(ctx, tx, ticketID, entries); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) ListAudit(ctx context.Context, ticketID string, newestFirst bool) ([]domain.AuditEntry, error) {
	order := "ASC"
	if newestFirst {
		order = "DESC"
	}
	query := fmt.Sprintf(`
        SELECT id, ticket_id, action, old_value, new_value, comment, performed_by, ts
        FROM ticket_audit WHERE ticket_id=$1 ORDER BY ts %s, id %s`, order, order)
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.Action,
			&entry.OldValue,
			&entry.NewValue,
			&entry.Comment,
			&entry.PerformedBy,
			&entry.Timestamp,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf(`SELECT %s FROM tickets`, ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_id=$%d", len(args)))
	}
	if filter.AssignedTechnicianID != nil {
		args = append(args, *filter.AssignedTechnicianID)
		clauses = append(clauses, fmt.Sprintf("assigned_technician_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SLAViolated != nil {
		args = append(args, *filter.SLAViolated)
		clauses = append(clauses, fmt.Sprintf("sla_violated=$%d", len(args)))
	}
	if len(filter.RequiredSkillIDs) > 0 {
		placeholders := make([]string, len(filter.RequiredSkillIDs))
		for i, id := range filter.RequiredSkillIDs {
			args = append(args, id)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf(
			"id IN (SELECT ticket_id FROM ticket_required_skills WHERE skill_id IN (%s))",
			strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(subject) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// ListActiveByTechnician returns the tickets that count toward a
// technician's workload.
func (r *ticketRepository) ListActiveByTechnician(ctx context.Context, technicianID string) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE assigned_technician_id=$1 AND status IN ($2,$3,$4)
        ORDER BY created_at ASC`, ticketColumns)
	rows, err := r.pool.Query(ctx, query, technicianID,
		domain.TicketStatusAssigned, domain.TicketStatusInProgress, domain.TicketStatusOnHold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) loadSets(ctx context.Context, ticket *domain.Ticket) error {
	rows, err := r.pool.Query(ctx,
		`SELECT skill_id FROM ticket_required_skills WHERE ticket_id=$1 ORDER BY skill_id`, ticket.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ticket.RequiredSkillIDs = append(ticket.RequiredSkillIDs, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	tagRows, err := r.pool.Query(ctx,
		`SELECT tag FROM ticket_tags WHERE ticket_id=$1 ORDER BY position`, ticket.ID)
	if err != nil {
		return err
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var tag string
		if err := tagRows.Scan(&tag); err != nil {
			return err
		}
		ticket.Tags = append(ticket.Tags, tag)
	}
	return tagRows.Err()
}

// replaceTicketSets rewrites the tag and required-skill join rows to mirror
// the aggregate's slices.
func replaceTicketSets(ctx context.Context, tx pgx.Tx, ticket *domain.Ticket) error {
	if _, err := tx.Exec(ctx, `DELETE FROM ticket_required_skills WHERE ticket_id=$1`, ticket.ID); err != nil {
		return err
	}
	for _, skillID := range ticket.RequiredSkillIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO ticket_required_skills (ticket_id, skill_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
			ticket.ID, skillID); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM ticket_tags WHERE ticket_id=$1`, ticket.ID); err != nil {
		return err
	}
	for i, tag := range ticket.Tags {
		if _, err := tx.Exec(ctx,
			`INSERT INTO ticket_tags (ticket_id, position, tag) VALUES ($1,$2,$3)`,
			ticket.ID, i, tag); err != nil {
			return err
		}
	}
	return nil
}

func insertAuditEntries(ctx context.Context, tx pgx.Tx, ticketID string, entries []domain.AuditEntry) error {
	for i := range entries {
		entry := &entries[i]
		if entry.Timestamp.IsZero() {
			entry.Timestamp = time.Now()
		}
		if err := tx.QueryRow(ctx, `
            INSERT INTO ticket_audit (ticket_id, action, old_value, new_value, comment, performed_by, ts)
            VALUES ($1,$2,$3,$4,$5,$6,$7)
            RETURNING id`,
			ticketID,
			entry.Action,
			entry.OldValue,
			entry.NewValue,
			entry.Comment,
			entry.PerformedBy,
			entry.Timestamp,
		).Scan(&entry.ID); err != nil {
			return err
		}
		entry.TicketID = ticketID
	}
	return nil
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.RequesterID,
		&ticket.AssignedTechnicianID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Impact,
		&ticket.Urgency,
		&ticket.SLAViolated,
		&ticket.ResolutionDue,
		&ticket.EscalationCount,
		&ticket.ReopenedCount,
		&ticket.SatisfactionRating,
		&ticket.Feedback,
		&ticket.Justification,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
