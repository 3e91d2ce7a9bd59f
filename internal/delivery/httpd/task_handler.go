package httpd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/RubachokBoss/homework-distributor/internal/models"
)

const maxUploadSize = 512 << 20

// CreateTask takes a multipart form: title, description, kind and file.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	kind := strings.TrimSpace(r.FormValue("kind"))
	if kind == "" {
		kind = models.MediaKindDocument.String()
	}

	task, err := h.tasks.CreateTask(r.Context(), &models.CreateTaskRequest{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Upload: models.Upload{
			FileName: header.Filename,
			Kind:     models.MediaKind(kind),
			Size:     header.Size,
			Content:  file,
		},
	})
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    task,
	})
}

func (h *Handler) GetAllTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.ListTasks(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeSuccess(w, map[string]interface{}{
		"tasks": tasks,
		"total": len(tasks),
	})
}

func (h *Handler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	task, err := h.tasks.GetTask(r.Context(), taskID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeSuccess(w, task)
}

func (h *Handler) DistributeTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var req models.DistributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	target, err := parseTarget(req.Target)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.distribution.Distribute(r.Context(), taskID, target)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeSuccess(w, distributionView(result))
}

func (h *Handler) ResendUnsubmitted(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	result, err := h.distribution.ResendUnsubmitted(r.Context(), taskID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeSuccess(w, distributionView(result))
}

func (h *Handler) ScheduleTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	var req models.ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	expr, err := h.scheduler.Schedule(r.Context(), taskID, req.Cron)
	if err != nil {
		h.handleError(w, err)
		return
	}

	resp := models.ScheduleResponse{TaskID: taskID, Cron: expr}
	if next, ok := h.scheduler.NextRun(taskID); ok {
		resp.NextRun = next.Format(time.RFC3339)
	}

	writeSuccess(w, resp)
}

func (h *Handler) UnscheduleTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	if err := h.scheduler.Unschedule(r.Context(), taskID); err != nil {
		h.handleError(w, err)
		return
	}

	writeSuccess(w, map[string]interface{}{"task_id": taskID})
}

func (h *Handler) GetTaskStats(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	stats, err := h.stats.Stats(r.Context(), taskID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeSuccess(w, stats)
}

func (h *Handler) GetTaskSubmissions(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	subs, err := h.submissions.ListByTask(r.Context(), taskID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if subs == nil {
		subs = []models.Submission{}
	}

	writeSuccess(w, map[string]interface{}{
		"submissions": subs,
		"total":       len(subs),
	})
}

func (h *Handler) ExportSubmissions(w http.ResponseWriter, r *http.Request) {
	taskID, ok := taskIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid task ID")
		return
	}

	data, err := h.submissions.ExportCSV(r.Context(), taskID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	if data == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="submissions_task_%d.csv"`, taskID))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func parseTarget(raw string) (models.Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "all") {
		return models.AllStudents(), nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return models.Target{}, fmt.Errorf("target must be \"all\" or a chat id")
	}
	return models.Students(id), nil
}

func distributionView(r *models.DistributionResult) map[string]interface{} {
	return map[string]interface{}{
		"task_id":         r.TaskID,
		"delivered":       r.Delivered,
		"failed":          r.Failed,
		"failed_chat_ids": r.FailedChatIDs(),
	}
}
