package postgres

import (
	"context"
	"fmt"

	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/YelzhanWeb/ordertrack/internal/interfaces"
)

type statusRepository struct {
	db DB
}

func NewStatusRepository(db DB) interfaces.StatusRepository {
	return &statusRepository{db: db}
}

func (r *statusRepository) ListActive(ctx context.Context) ([]domain.OrderStatus, error) {
	query := `
		SELECT id, label_es, label_en, color, icon, sort_order, is_active, category, next_statuses
		FROM order_statuses
		WHERE is_active = TRUE
		ORDER BY sort_order ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query statuses: %w", err)
	}
	defer rows.Close()

	var statuses []domain.OrderStatus
	for rows.Next() {
		var s domain.OrderStatus
		var category string
		if err := rows.Scan(&s.ID, &s.Label.ES, &s.Label.EN, &s.Color, &s.Icon,
			&s.SortOrder, &s.Active, &category, &s.NextStatuses); err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}
		s.Category = domain.StatusCategory(category)
		statuses = append(statuses, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read statuses: %w", err)
	}

	return statuses, nil
}

// Upsert writes the statuses in one transaction, replacing rows with the
// same ID.
func (r *statusRepository) Upsert(ctx context.Context, statuses []domain.OrderStatus) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO order_statuses (id, label_es, label_en, color, icon, sort_order, is_active, category, next_statuses)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			label_es = EXCLUDED.label_es,
			label_en = EXCLUDED.label_en,
			color = EXCLUDED.color,
			icon = EXCLUDED.icon,
			sort_order = EXCLUDED.sort_order,
			is_active = EXCLUDED.is_active,
			category = EXCLUDED.category,
			next_statuses = EXCLUDED.next_statuses
	`

	for _, s := range statuses {
		next := s.NextStatuses
		if next == nil {
			next = []string{}
		}
		if _, err := tx.Exec(ctx, query, s.ID, s.Label.ES, s.Label.EN, s.Color, s.Icon,
			s.SortOrder, s.Active, string(s.Category), next); err != nil {
			return fmt.Errorf("failed to upsert status %s: %w", s.ID, err)
		}
	}

	return tx.Commit(ctx)
}
