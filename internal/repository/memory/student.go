package memory

import (
	"context"
	"sort"

	"github.com/RubachokBoss/homework-distributor/internal/models"
	"github.com/RubachokBoss/homework-distributor/internal/repository"
)

type studentRepository struct {
	db *DB
}

func NewStudentRepository(db *DB) repository.StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) Upsert(_ context.Context, student *models.Student) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if existing, ok := r.db.students[student.ChatID]; ok {
		student.ID = existing.ID
		return false, nil
	}

	r.db.studentSeq++
	student.ID = r.db.studentSeq
	stored := *student
	r.db.students[student.ChatID] = &stored
	return true, nil
}

func (r *studentRepository) GetByChatID(_ context.Context, chatID int64) (*models.Student, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if s, ok := r.db.students[chatID]; ok {
		student := *s
		return &student, nil
	}
	return nil, repository.ErrNotFound
}

func (r *studentRepository) GetAll(_ context.Context) ([]models.Student, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	res := make([]models.Student, 0, len(r.db.students))
	for _, s := range r.db.students {
		res = append(res, *s)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}
