package http

import (
	"errors"
	"net/http"
	"strings"

	"bottega/internal/core"
	"bottega/internal/log"
	"bottega/internal/services"
)

type calendarData struct {
	Tasks []core.Task
	Today string
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.deps.Tasks.ListTasks(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "List tasks failed", log.FieldError, err, log.FieldOperation, log.OpList)
		s.renderFlash(w, r, "calendar.html", calendarData{Today: today()}, &Flash{Kind: FlashError, Message: "Error loading tasks."})
		return
	}
	s.render(w, r, "calendar.html", calendarData{Tasks: tasks, Today: today()})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	t, err := ParseTaskForm(postForm(r))
	if err != nil {
		SeeOther("/calendar").Error("Error adding task: " + err.Error() + ".").Write(w)
		return
	}
	if _, err := s.deps.Tasks.CreateTask(r.Context(), t); err != nil {
		SeeOther("/calendar").Error(s.userMessage(r, err, "Error adding task.")).Write(w)
		return
	}
	SeeOther("/calendar").Success("Task added.").Write(w)
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(postForm(r).Get("task_id"))
	if id == "" {
		SeeOther("/calendar").Error("Task ID missing.").Write(w)
		return
	}
	_, err := s.deps.Tasks.ToggleTask(r.Context(), id)
	switch {
	case errors.Is(err, services.ErrNotFound):
		SeeOther("/calendar").Error("Task not found.").Write(w)
	case err != nil:
		s.logger.ErrorContext(r.Context(), "Toggle task failed", log.FieldRecordID, id, log.FieldError, err)
		SeeOther("/calendar").Error("Error updating task.").Write(w)
	default:
		SeeOther("/calendar").Success("Task status updated.").Write(w)
	}
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.deps.Tasks.DeleteTask(r.Context(), id); err != nil && !errors.Is(err, services.ErrNotFound) {
		s.logger.ErrorContext(r.Context(), "Delete task failed", log.FieldRecordID, id, log.FieldError, err)
		SeeOther("/calendar").Error("Error deleting task.").Write(w)
		return
	}
	SeeOther("/calendar").Success("Task deleted.").Write(w)
}

func (s *Server) handleEditTask(w http.ResponseWriter, r *http.Request) {
	form := postForm(r)
	if strings.TrimSpace(form.Get("name")) == "" || strings.TrimSpace(form.Get("date")) == "" {
		SeeOther("/calendar").Error("Missing required fields.").Write(w)
		return
	}
	t, err := ParseTaskForm(form)
	if err != nil {
		SeeOther("/calendar").Error("Invalid input: " + err.Error() + ".").Write(w)
		return
	}
	t.ID = r.PathValue("id")

	err = s.deps.Tasks.EditTask(r.Context(), t)
	switch {
	case errors.Is(err, services.ErrNotFound):
		SeeOther("/calendar").Error("Task not found.").Write(w)
	case err != nil:
		SeeOther("/calendar").Error(s.userMessage(r, err, "Error updating task.", log.FieldRecordID, t.ID)).Write(w)
	default:
		SeeOther("/calendar").Success("Task updated.").Write(w)
	}
}
