package httpd

import (
	"encoding/json"
	"net/http"

	"github.com/RubachokBoss/homework-distributor/internal/models"
)

func (h *Handler) GetAllStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.students.ListStudents(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeSuccess(w, map[string]interface{}{
		"students": students,
		"total":    len(students),
	})
}

func (h *Handler) RegisterStudent(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.ChatID == 0 {
		writeError(w, http.StatusBadRequest, "chat_id is required")
		return
	}

	student, created, err := h.students.Register(r.Context(), req.ChatID, req.Name)
	if err != nil {
		h.handleError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]interface{}{
		"success": true,
		"created": created,
		"data":    student,
	})
}
