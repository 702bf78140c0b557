package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskflow/internal/task"
)

type taskRequest struct {
	Title   string `json:"title"`
	DueDate string `json:"due_date"`
}

// createdResponse is the body answered to a successful create.
type createdResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// handleListTasks returns every task; ?sort=date orders by due date.
func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.tasks.List(c.Request.Context(), task.ParseSortMode(c.Query("sort")))
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, tasks)
}

// handleCreateTask inserts a new pending task.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	id, err := s.tasks.Create(c.Request.Context(), req.Title, req.DueDate)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, createdResponse{ID: id, Message: "task created"})
}

// handleCompleteTask marks a task as completed.
func (s *Server) handleCompleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.tasks.Complete(c.Request.Context(), id); err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.String(http.StatusOK, "task marked as completed")
}

// handleUpdateTask replaces the title and due date of a task.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	if err := s.tasks.Update(c.Request.Context(), id, req.Title, req.DueDate); err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.String(http.StatusOK, "task updated")
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := s.tasks.Delete(c.Request.Context(), id); err != nil {
		s.respondServiceError(c, err)
		return
	}
	c.String(http.StatusOK, "task deleted")
}

// respondServiceError maps service errors onto status codes. Store failures
// are logged and answered with a generic message.
func (s *Server) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, task.ErrValidation):
		s.respondError(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, task.ErrNotFound):
		s.respondError(c, http.StatusNotFound, task.ErrNotFound.Error(), nil)
	default:
		s.respondError(c, http.StatusInternalServerError, "internal server error", err)
	}
}
