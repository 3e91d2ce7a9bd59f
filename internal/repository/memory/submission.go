package memory

import (
	"context"

	"github.com/RubachokBoss/homework-distributor/internal/models"
	"github.com/RubachokBoss/homework-distributor/internal/repository"
)

type submissionRepository struct {
	db *DB
}

func NewSubmissionRepository(db *DB) repository.SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(_ context.Context, sub *models.Submission) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.tasks[sub.TaskID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := r.db.students[sub.StudentChatID]; !ok {
		return repository.ErrNotFound
	}

	r.db.submissionSeq++
	sub.ID = r.db.submissionSeq
	r.db.submissions = append(r.db.submissions, *sub)
	return nil
}

func (r *submissionRepository) GetByTask(_ context.Context, taskID int64) ([]models.Submission, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var res []models.Submission
	for _, sub := range r.db.submissions {
		if sub.TaskID == taskID {
			res = append(res, sub)
		}
	}
	return res, nil
}

func (r *submissionRepository) GetSubmittedStudents(ctx context.Context, taskID int64) ([]int64, error) {
	marks, err := r.GetLatestByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(marks))
	for _, m := range marks {
		ids = append(ids, m.StudentChatID)
	}
	return ids, nil
}

func (r *submissionRepository) GetLatestByTask(_ context.Context, taskID int64) ([]models.SubmissionMark, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var (
		order  []int64
		latest = make(map[int64]models.SubmissionMark)
	)
	for _, sub := range r.db.submissions {
		if sub.TaskID != taskID {
			continue
		}
		mark, seen := latest[sub.StudentChatID]
		if !seen {
			order = append(order, sub.StudentChatID)
		}
		if !seen || sub.SubmittedAt.After(mark.SubmittedAt) {
			latest[sub.StudentChatID] = models.SubmissionMark{
				StudentChatID: sub.StudentChatID,
				SubmittedAt:   sub.SubmittedAt,
			}
		}
	}

	res := make([]models.SubmissionMark, 0, len(order))
	for _, id := range order {
		res = append(res, latest[id])
	}
	return res, nil
}

func (r *submissionRepository) GetLatestByStudent(_ context.Context, chatID int64) (map[int64]models.SubmissionMark, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	res := make(map[int64]models.SubmissionMark)
	for _, sub := range r.db.submissions {
		if sub.StudentChatID != chatID {
			continue
		}
		if mark, ok := res[sub.TaskID]; !ok || sub.SubmittedAt.After(mark.SubmittedAt) {
			res[sub.TaskID] = models.SubmissionMark{StudentChatID: chatID, SubmittedAt: sub.SubmittedAt}
		}
	}
	return res, nil
}
