package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/RubachokBoss/homework-distributor/internal/models"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

type submissionRepository struct {
	*PostgresRepository
}

func NewSubmissionRepository(db *sql.DB, logger zerolog.Logger) SubmissionRepository {
	return &submissionRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *submissionRepository) Create(ctx context.Context, sub *models.Submission) error {
	query := `
		INSERT INTO submissions (task_id, student_chat_id, file_path, file_type, submitted_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		sub.TaskID,
		sub.StudentChatID,
		sub.Artifact.Handle,
		sub.Artifact.Kind.String(),
		sub.SubmittedAt,
	).Scan(&sub.ID)
	if isForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

// foreign_key_violation
const pqForeignKeyViolation = "23503"

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation
}

func (r *submissionRepository) GetByTask(ctx context.Context, taskID int64) ([]models.Submission, error) {
	query := `
		SELECT id, task_id, student_chat_id, file_path, file_type, submitted_at
		FROM submissions
		WHERE task_id = $1
		ORDER BY submitted_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.Submission
	for rows.Next() {
		var (
			sub      models.Submission
			fileType string
		)
		if err := rows.Scan(
			&sub.ID,
			&sub.TaskID,
			&sub.StudentChatID,
			&sub.Artifact.Handle,
			&fileType,
			&sub.SubmittedAt,
		); err != nil {
			return nil, err
		}
		sub.Artifact.Kind = models.MediaKind(fileType)
		subs = append(subs, sub)
	}

	return subs, rows.Err()
}

func (r *submissionRepository) GetSubmittedStudents(ctx context.Context, taskID int64) ([]int64, error) {
	query := `SELECT DISTINCT student_chat_id FROM submissions WHERE task_id = $1`

	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *submissionRepository) GetLatestByTask(ctx context.Context, taskID int64) ([]models.SubmissionMark, error) {
	query := `
		SELECT student_chat_id, MAX(submitted_at)
		FROM submissions
		WHERE task_id = $1
		GROUP BY student_chat_id
	`

	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var marks []models.SubmissionMark
	for rows.Next() {
		var mark models.SubmissionMark
		if err := rows.Scan(&mark.StudentChatID, &mark.SubmittedAt); err != nil {
			return nil, err
		}
		marks = append(marks, mark)
	}

	return marks, rows.Err()
}

func (r *submissionRepository) GetLatestByStudent(ctx context.Context, chatID int64) (map[int64]models.SubmissionMark, error) {
	query := `
		SELECT task_id, MAX(submitted_at)
		FROM submissions
		WHERE student_chat_id = $1
		GROUP BY task_id
	`

	rows, err := r.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	marks := make(map[int64]models.SubmissionMark)
	for rows.Next() {
		var (
			taskID int64
			mark   = models.SubmissionMark{StudentChatID: chatID}
		)
		if err := rows.Scan(&taskID, &mark.SubmittedAt); err != nil {
			return nil, err
		}
		marks[taskID] = mark
	}

	return marks, rows.Err()
}
