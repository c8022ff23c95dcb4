package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// TechnicianFilter narrows technician listings.
type TechnicianFilter struct {
	ActiveOnly bool
	SkillIDs   []string
	Limit      int
	Offset     int
}

// TechnicianRepository encapsulates technician persistence.
type TechnicianRepository interface {
	Create(ctx context.Context, technician *domain.Technician) error
	GetByID(ctx context.Context, id string) (*domain.Technician, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Technician, error)
	List(ctx context.Context, filter TechnicianFilter) ([]domain.Technician, error)
	ReplaceSkills(ctx context.Context, technicianID string, skills []domain.TechnicianSkill) error
	UpdateAvailability(ctx context.Context, technicianID string, status domain.AvailabilityStatus) error
}

type technicianRepository struct {
	pool *pgxpool.Pool
}

// NewTechnicianRepository instantiates repository.
func NewTechnicianRepository(pool *pgxpool.Pool) TechnicianRepository {
	return &technicianRepository{pool: pool}
}

func (r *technicianRepository) Create(ctx context.Context, technician *domain.Technician) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO technicians (user_id, name, email, availability_status, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		technician.UserID,
		technician.Name,
		technician.Email,
		technician.AvailabilityStatus,
		technician.IsActive,
	).Scan(&technician.ID, &technician.CreatedAt, &technician.UpdatedAt); err != nil {
		return err
	}

	if err := insertSkills(ctx, tx, technician.ID, technician.Skills); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *technicianRepository) UpdateAvailability(ctx context.Context, technicianID string, status domain.AvailabilityStatus) error {
	const query = `UPDATE technicians SET availability_status=$2, updated_at=NOW() WHERE id=$1`
	tag, err := r.pool.Exec(ctx, query, technicianID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *technicianRepository) GetByID(ctx context.Context, id string) (*domain.Technician, error) {
	return r.fetchSingle(ctx, `WHERE id=$1`, id)
}

func (r *technicianRepository) GetByUserID(ctx context.Context, userID string) (*domain.Technician, error) {
	return r.fetchSingle(ctx, `WHERE user_id=$1`, userID)
}

func (r *technicianRepository) fetchSingle(ctx context.Context, where string, arg any) (*domain.Technician, error) {
	query := `
        SELECT id, user_id, name, email, availability_status, is_active, created_at, updated_at
        FROM technicians ` + where
	var tech domain.Technician
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&tech.ID,
		&tech.UserID,
		&tech.Name,
		&tech.Email,
		&tech.AvailabilityStatus,
		&tech.IsActive,
		&tech.CreatedAt,
		&tech.UpdatedAt,
	); err != nil {
		return nil, err
	}

	skills, err := r.loadSkills(ctx, tech.ID)
	if err != nil {
		return nil, err
	}
	tech.Skills = skills
	return &tech, nil
}

func (r *technicianRepository) List(ctx context.Context, filter TechnicianFilter) ([]domain.Technician, error) {
	query := `
        SELECT id, user_id, name, email, availability_status, is_active, created_at, updated_at
        FROM technicians`
	args := []any{}
	if filter.ActiveOnly {
		query += ` WHERE is_active=TRUE`
	}
	query += ` ORDER BY id`

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Technician
	for rows.Next() {
		var tech domain.Technician
		if err := rows.Scan(
			&tech.ID,
			&tech.UserID,
			&tech.Name,
			&tech.Email,
			&tech.AvailabilityStatus,
			&tech.IsActive,
			&tech.CreatedAt,
			&tech.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, tech)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		skills, err := r.loadSkills(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Skills = skills
	}

	if len(filter.SkillIDs) > 0 {
		filtered := result[:0]
		for _, tech := range result {
			if holdsAny(&tech, filter.SkillIDs) {
				filtered = append(filtered, tech)
			}
		}
		result = filtered
	}
	return result, nil
}

// ReplaceSkills swaps the technician's proficiency rows in one transaction.
// Used when the evaluation backend re-scores a technician after resolution.
func (r *technicianRepository) ReplaceSkills(ctx context.Context, technicianID string, skills []domain.TechnicianSkill) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, `UPDATE technicians SET updated_at=NOW() WHERE id=$1`, technicianID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	if _, err := tx.Exec(ctx, `DELETE FROM technician_skills WHERE technician_id=$1`, technicianID); err != nil {
		return err
	}
	if err := insertSkills(ctx, tx, technicianID, skills); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *technicianRepository) loadSkills(ctx context.Context, technicianID string) ([]domain.TechnicianSkill, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT skill_id, proficiency FROM technician_skills WHERE technician_id=$1 ORDER BY skill_id`,
		technicianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var skills []domain.TechnicianSkill
	for rows.Next() {
		var skill domain.TechnicianSkill
		if err := rows.Scan(&skill.SkillID, &skill.Proficiency); err != nil {
			return nil, err
		}
		skills = append(skills, skill)
	}
	return skills, rows.Err()
}

func insertSkills(ctx context.Context, tx pgx.Tx, technicianID string, skills []domain.TechnicianSkill) error {
	for _, skill := range skills {
		if _, err := tx.Exec(ctx, `
            INSERT INTO technician_skills (technician_id, skill_id, proficiency)
            VALUES ($1,$2,$3)
            ON CONFLICT (technician_id, skill_id) DO UPDATE SET proficiency=EXCLUDED.proficiency`,
			technicianID, skill.SkillID, skill.Proficiency); err != nil {
			return err
		}
	}
	return nil
}

func holdsAny(tech *domain.Technician, skillIDs []string) bool {
	for _, id := range skillIDs {
		if _, ok := tech.SkillProficiency(id); ok {
			return true
		}
	}
	return false
}
