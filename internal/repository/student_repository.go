package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/RubachokBoss/homework-distributor/internal/models"
	"github.com/rs/zerolog"
)

type studentRepository struct {
	*PostgresRepository
}

func NewStudentRepository(db *sql.DB, logger zerolog.Logger) StudentRepository {
	return &studentRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *studentRepository) Upsert(ctx context.Context, student *models.Student) (bool, error) {
	query := `
		INSERT INTO students (chat_id, name, registered_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (chat_id) DO NOTHING
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		student.ChatID,
		student.Name,
		student.RegisteredAt,
	).Scan(&student.ID)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (r *studentRepository) GetByChatID(ctx context.Context, chatID int64) (*models.Student, error) {
	query := `
		SELECT id, chat_id, name, registered_at
		FROM students
		WHERE chat_id = $1
	`

	student := &models.Student{}
	err := r.db.QueryRowContext(ctx, query, chatID).Scan(
		&student.ID,
		&student.ChatID,
		&student.Name,
		&student.RegisteredAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	return student, err
}

func (r *studentRepository) GetAll(ctx context.Context) ([]models.Student, error) {
	query := `
		SELECT id, chat_id, name, registered_at
		FROM students
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []models.Student
	for rows.Next() {
		var student models.Student
		if err := rows.Scan(
			&student.ID,
			&student.ChatID,
			&student.Name,
			&student.RegisteredAt,
		); err != nil {
			return nil, err
		}
		students = append(students, student)
	}

	return students, rows.Err()
}
