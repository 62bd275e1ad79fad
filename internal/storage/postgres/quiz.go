package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scythe504/kartquiz-backend/internal"
	"github.com/scythe504/kartquiz-backend/internal/quiz"
)

// QuizRepository is a quiz.Store backed by the saved_quizzes table. Questions
// are stored as a JSONB array.
type QuizRepository struct {
	db *pgxpool.Pool
}

var _ quiz.Store = (*QuizRepository)(nil)

// NewQuizRepository creates a QuizRepository backed by the given pool.
func NewQuizRepository(db *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{db: db}
}

func (r *QuizRepository) List(ctx context.Context) ([]quiz.SavedQuiz, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, title, questions, created_at
		 FROM saved_quizzes
		 ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing quizzes: %w", err)
	}
	defer rows.Close()

	quizzes := make([]quiz.SavedQuiz, 0)
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating quizzes: %w", err)
	}
	return quizzes, nil
}

// Save upserts q. Replacing an existing quiz keeps its created_at.
func (r *QuizRepository) Save(ctx context.Context, q quiz.SavedQuiz) (quiz.SavedQuiz, error) {
	q, err := quiz.Prepare(q)
	if err != nil {
		return quiz.SavedQuiz{}, err
	}

	err = r.db.QueryRow(ctx,
		`INSERT INTO saved_quizzes (id, title, questions)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE
		 SET title = EXCLUDED.title,
		     questions = EXCLUDED.questions,
		     updated_at = NOW()
		 RETURNING created_at`,
		q.ID, q.Title, q.Questions,
	).Scan(&q.CreatedAt)
	if err != nil {
		return quiz.SavedQuiz{}, fmt.Errorf("saving quiz %s: %w", q.ID, err)
	}
	q.CreatedAt = q.CreatedAt.UTC()
	return q, nil
}

func (r *QuizRepository) Get(ctx context.Context, id string) (quiz.SavedQuiz, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, title, questions, created_at
		 FROM saved_quizzes WHERE id = $1`,
		id,
	)
	q, err := scanQuiz(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return quiz.SavedQuiz{}, fmt.Errorf("quiz %s: %w", id, quiz.ErrQuizNotFound)
		}
		return quiz.SavedQuiz{}, err
	}
	return q, nil
}

func (r *QuizRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM saved_quizzes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting quiz %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("quiz %s: %w", id, quiz.ErrQuizNotFound)
	}
	return nil
}

func scanQuiz(row pgx.Row) (quiz.SavedQuiz, error) {
	var q quiz.SavedQuiz
	var questions []internal.Question
	if err := row.Scan(&q.ID, &q.Title, &questions, &q.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return quiz.SavedQuiz{}, err
		}
		return quiz.SavedQuiz{}, fmt.Errorf("scanning quiz: %w", err)
	}
	if questions == nil {
		questions = []internal.Question{}
	}
	q.Questions = questions
	q.CreatedAt = q.CreatedAt.UTC()
	return q, nil
}
