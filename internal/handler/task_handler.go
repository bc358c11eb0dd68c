package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/doease/doease/internal/domain"
	"github.com/doease/doease/internal/dto"
	"github.com/doease/doease/internal/tasks"
	"github.com/gin-gonic/gin"
)

// TaskHandler exposes the task list, its mutations, and the analytics
// report. All routes run behind RequireUser.
type TaskHandler struct {
	manager *tasks.Manager
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(manager *tasks.Manager) *TaskHandler {
	return &TaskHandler{manager: manager}
}

// List reloads and returns the user's tasks, newest first.
func (h *TaskHandler) List(c *gin.Context) {
	user := currentUser(c)

	list, err := h.manager.Load(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{
			Error:   "Task list failed",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, list)
}

// Add creates a task.
func (h *TaskHandler) Add(c *gin.Context) {
	var req dto.AddTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: err.Error(),
		})
		return
	}

	if err := h.manager.EnsureLoaded(c.Request.Context(), currentUser(c).ID); err != nil {
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{
			Error:   "Task list failed",
			Message: err.Error(),
		})
		return
	}

	created, err := h.manager.Add(c.Request.Context(), domain.NewTask{
		Name:     req.Name,
		Priority: req.Priority,
		DueDate:  req.DueDate,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Add failed",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Toggle flips a task's completion flag.
func (h *TaskHandler) Toggle(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "task id must be an integer",
		})
		return
	}

	if err := h.manager.EnsureLoaded(c.Request.Context(), currentUser(c).ID); err != nil {
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{
			Error:   "Task list failed",
			Message: err.Error(),
		})
		return
	}

	updated, err := h.manager.Toggle(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{
			Error:   "Update failed",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Delete removes a task.
func (h *TaskHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "Validation failed",
			Message: "task id must be an integer",
		})
		return
	}

	if err := h.manager.EnsureLoaded(c.Request.Context(), currentUser(c).ID); err != nil {
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{
			Error:   "Task list failed",
			Message: err.Error(),
		})
		return
	}

	if err := h.manager.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{
			Error:   "Delete failed",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Task deleted"})
}

// Analytics returns the productivity report for the current task list.
func (h *TaskHandler) Analytics(c *gin.Context) {
	user := currentUser(c)

	list, err := h.manager.Load(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{
			Error:   "Analytics failed",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, tasks.BuildReport(list, time.Now()))
}
