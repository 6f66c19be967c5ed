package apihandlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"pergaminos/internal/models"
	"pergaminos/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ReorderHandler enqueues an AI reorder run. The reorder and
// process-reorder routes share this handler; only the recorded task kind
// differs, and both poll endpoints accept either kind's task id.
func (h *APIHandler) ReorderHandler(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, err := parseUUIDParam(c, "projectId")
		if err != nil {
			BadRequest(c, err.Error())
			return
		}
		if _, err := h.App.Projects.GetProject(c.Request.Context(), projectID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				NotFound(c, fmt.Sprintf("Project %s not found", projectID))
				return
			}
			Internal(c, fmt.Sprintf("ReorderHandler: failed to get project: %v", err))
			return
		}

		instructions := c.PostForm("semantic_instructions")

		docs, err := h.App.Documents.ListProjectDocumentsByStatus(c.Request.Context(), projectID, models.DocumentStatusCompleted)
		if err != nil {
			Internal(c, fmt.Sprintf("ReorderHandler: failed to list documents: %v", err))
			return
		}

		// The task record exists before the job is dispatched so a poll
		// that races the worker still finds a processing task.
		task, err := h.App.Registry.Create(c.Request.Context(), uuid.New(), projectID, kind)
		if err != nil {
			Internal(c, fmt.Sprintf("ReorderHandler: failed to create task: %v", err))
			return
		}

		if err := h.App.JobClient.EnqueueReorder(c.Request.Context(), task.ID, projectID, instructions, kind); err != nil {
			if failErr := h.App.Registry.Fail(c.Request.Context(), task.ID, "failed to enqueue job"); failErr != nil {
				log.Errorf("Failed to mark task %s failed after enqueue error: %v", task.ID, failErr)
			}
			Internal(c, fmt.Sprintf("ReorderHandler: failed to enqueue job: %v", err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"task_id":         task.ID,
			"documents_count": len(docs),
			"status":          models.TaskStatusProcessing,
		})
	}
}

// ManualChangesHandler enqueues a client-driven rename/reorder. The
// document_changes form field must decode before anything is enqueued;
// a malformed map is the caller's error and gets a synchronous 400.
func (h *APIHandler) ManualChangesHandler(c *gin.Context) {
	projectID, err := parseUUIDParam(c, "projectId")
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	if _, err := h.App.Projects.GetProject(c.Request.Context(), projectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, fmt.Sprintf("Project %s not found", projectID))
			return
		}
		Internal(c, fmt.Sprintf("ManualChangesHandler: failed to get project: %v", err))
		return
	}

	raw := c.PostForm("document_changes")
	if raw == "" {
		BadRequest(c, "Missing required form field 'document_changes'")
		return
	}
	var changes map[string]models.DocumentChange
	if err := json.Unmarshal([]byte(raw), &changes); err != nil {
		BadRequest(c, "Invalid document_changes JSON: "+err.Error())
		return
	}

	task, err := h.App.Registry.Create(c.Request.Context(), uuid.New(), projectID, models.TaskKindProcess)
	if err != nil {
		Internal(c, fmt.Sprintf("ManualChangesHandler: failed to create task: %v", err))
		return
	}

	if err := h.App.JobClient.EnqueueManualChanges(c.Request.Context(), task.ID, projectID, changes); err != nil {
		if failErr := h.App.Registry.Fail(c.Request.Context(), task.ID, "failed to enqueue job"); failErr != nil {
			log.Errorf("Failed to mark task %s failed after enqueue error: %v", task.ID, failErr)
		}
		Internal(c, fmt.Sprintf("ManualChangesHandler: failed to enqueue job: %v", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task_id":         task.ID,
		"documents_count": len(changes),
		"status":          models.TaskStatusProcessing,
	})
}

// TaskStatusHandler polls a batch task scoped to its project. An unknown
// task id, or one belonging to another project, yields 200 with
// status "not_found": from the poller's point of view absence is a
// status, not a transport error.
func (h *APIHandler) TaskStatusHandler(c *gin.Context) {
	projectID, err := parseUUIDParam(c, "projectId")
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	taskID, err := parseUUIDParam(c, "taskId")
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	task, err := h.App.Registry.Get(c.Request.Context(), taskID, projectID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"status": "not_found"})
			return
		}
		Internal(c, fmt.Sprintf("TaskStatusHandler: failed to get task: %v", err))
		return
	}

	c.JSON(http.StatusOK, taskStatusResponse(task))
}

// taskStatusResponse shapes the poll payload: result only when
// completed, error only when failed.
func taskStatusResponse(task *models.Task) gin.H {
	resp := gin.H{
		"task_id":  task.ID,
		"status":   task.Status,
		"progress": task.Progress,
	}
	if task.Status == models.TaskStatusCompleted && len(task.Result) > 0 {
		resp["result"] = json.RawMessage(task.Result)
	}
	if task.Status == models.TaskStatusFailed && task.Error != nil {
		resp["error"] = *task.Error
	}
	return resp
}
