package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const moduleColumns = `id, title, description, content, video_url, duration_minutes, display_order, is_mandatory,
       is_active, quiz_questions, passing_score, created_at`

func scanModule(row pgx.Row) (*TrainingModule, error) {
	var (
		m    TrainingModule
		quiz []byte
	)
	if err := row.Scan(&m.ID, &m.Title, &m.Description, &m.Content, &m.VideoURL, &m.DurationMinutes, &m.DisplayOrder,
		&m.IsMandatory, &m.IsActive, &quiz, &m.PassingScore, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Quiz = decodeList[QuizQuestion](quiz)
	return &m, nil
}

// ListModules returns training modules in display order.
func (r *Repository) ListModules(ctx context.Context, activeOnly bool) ([]TrainingModule, error) {
	rows, err := r.q.Query(ctx, `SELECT `+moduleColumns+` FROM training_modules
		WHERE ($1::boolean = FALSE OR is_active) ORDER BY display_order, id`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("catalog: list modules: %w", err)
	}
	defer rows.Close()

	out := []TrainingModule{}
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan module: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// CreateModule inserts a training module.
func (r *Repository) CreateModule(ctx context.Context, in TrainingModule) (*TrainingModule, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.PassingScore == 0 {
		in.PassingScore = 70
	}
	if in.PassingScore < 0 || in.PassingScore > 100 {
		return nil, fmt.Errorf("%w: passing_score must be 0-100", ErrInvalidInput)
	}
	if in.DurationMinutes == 0 {
		in.DurationMinutes = 30
	}
	m, err := scanModule(r.q.QueryRow(ctx, `
		INSERT INTO training_modules (title, description, content, video_url, duration_minutes, display_order,
		                              is_mandatory, is_active, quiz_questions, passing_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+moduleColumns,
		in.Title, in.Description, in.Content, in.VideoURL, in.DurationMinutes, in.DisplayOrder,
		in.IsMandatory, in.IsActive, encodeList(in.Quiz), in.PassingScore))
	if err != nil {
		return nil, fmt.Errorf("catalog: create module: %w", err)
	}
	return m, nil
}
