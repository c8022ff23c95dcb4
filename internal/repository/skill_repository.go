package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// SkillRepository encapsulates skill persistence.
type SkillRepository interface {
	Create(ctx context.Context, skill *domain.Skill) error
	GetByID(ctx context.Context, id string) (*domain.Skill, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Skill, error)
	ListActive(ctx context.Context) ([]domain.Skill, error)
}

type skillRepository struct {
	pool *pgxpool.Pool
}

// NewSkillRepository instantiates repository.
func NewSkillRepository(pool *pgxpool.Pool) SkillRepository {
	return &skillRepository{pool: pool}
}

func (r *skillRepository) Create(ctx context.Context, skill *domain.Skill) error {
	const query = `
        INSERT INTO skills (name, category, is_active)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		skill.Name,
		skill.Category,
		skill.IsActive,
	).Scan(&skill.ID, &skill.CreatedAt, &skill.UpdatedAt)
}

func (r *skillRepository) GetByID(ctx context.Context, id string) (*domain.Skill, error) {
	const query = `
        SELECT id, name, category, is_active, created_at, updated_at
        FROM skills WHERE id=$1`
	var skill domain.Skill
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&skill.ID,
		&skill.Name,
		&skill.Category,
		&skill.IsActive,
		&skill.CreatedAt,
		&skill.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &skill, nil
}

func (r *skillRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.Skill, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `
        SELECT id, name, category, is_active, created_at, updated_at
        FROM skills WHERE id = ANY($1) ORDER BY id`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSkills(rows)
}

func (r *skillRepository) ListActive(ctx context.Context) ([]domain.Skill, error) {
	const query = `
        SELECT id, name, category, is_active, created_at, updated_at
        FROM skills WHERE is_active=TRUE ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSkills(rows)
}

func scanSkills(rows pgx.Rows) ([]domain.Skill, error) {
	var result []domain.Skill
	for rows.Next() {
		var skill domain.Skill
		if err := rows.Scan(
			&skill.ID,
			&skill.Name,
			&skill.Category,
			&skill.IsActive,
			&skill.CreatedAt,
			&skill.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, skill)
	}
	return result, rows.Err()
}
