package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// TaskRepository stores technician sub-tasks and work logs.
type TaskRepository interface {
	CreateTask(ctx context.Context, task *domain.Task) error
	ListTasksByTicket(ctx context.Context, ticketID string) ([]domain.Task, error)
	CreateWorkLog(ctx context.Context, log *domain.WorkLog) error
	ListWorkLogsByTicket(ctx context.Context, ticketID string) ([]domain.WorkLog, error)
}

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository instantiates repository.
func NewTaskRepository(pool *pgxpool.Pool) TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) CreateTask(ctx context.Context, task *domain.Task) error {
	const query = `
        INSERT INTO ticket_tasks (ticket_id, technician_id, title, description, status, due_date)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		task.TicketID,
		task.TechnicianID,
		task.Title,
		task.Description,
		task.Status,
		task.DueDate,
	).Scan(&task.ID, &task.CreatedAt)
}

func (r *taskRepository) ListTasksByTicket(ctx context.Context, ticketID string) ([]domain.Task, error) {
	const query = `
        SELECT id, ticket_id, technician_id, title, description, status, due_date, completed_at, created_at
        FROM ticket_tasks WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Task
	for rows.Next() {
		var task domain.Task
		if err := rows.Scan(
			&task.ID,
			&task.TicketID,
			&task.TechnicianID,
			&task.Title,
			&task.Description,
			&task.Status,
			&task.DueDate,
			&task.CompletedAt,
			&task.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, task)
	}
	return result, rows.Err()
}

func (r *taskRepository) CreateWorkLog(ctx context.Context, log *domain.WorkLog) error {
	const query = `
        INSERT INTO ticket_work_logs (ticket_id, technician_id, summary, minutes)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		log.TicketID,
		log.TechnicianID,
		log.Summary,
		log.Minutes,
	).Scan(&log.ID, &log.CreatedAt)
}

func (r *taskRepository) ListWorkLogsByTicket(ctx context.Context, ticketID string) ([]domain.WorkLog, error) {
	const query = `
        SELECT id, ticket_id, technician_id, summary, minutes, created_at
        FROM ticket_work_logs WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.WorkLog
	for rows.Next() {
		var log domain.WorkLog
		if err := rows.Scan(
			&log.ID,
			&log.TicketID,
			&log.TechnicianID,
			&log.Summary,
			&log.Minutes,
			&log.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, log)
	}
	return result, rows.Err()
}
