package apihandlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"pergaminos/internal/models"
	"pergaminos/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// CreateAgentRequest represents the JSON body for creating a QA agent.
type CreateAgentRequest struct {
	Name           string      `json:"name" binding:"required"`
	Description    *string     `json:"description"`
	QAInstructions string      `json:"qa_instructions" binding:"required"`
	ProjectIDs     []uuid.UUID `json:"project_ids" binding:"required"`
	CreatedBy      string      `json:"created_by"`
}

func (h *APIHandler) CreateAgentHandler(c *gin.Context) {
	var req CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if len(req.ProjectIDs) == 0 {
		BadRequest(c, "At least one project id is required")
		return
	}

	agent := &models.QAAgent{
		ID:             uuid.New(),
		Name:           req.Name,
		Description:    req.Description,
		QAInstructions: req.QAInstructions,
		ProjectIDs:     req.ProjectIDs,
		IsActive:       true,
		CreatedAt:      time.Now(),
		CreatedBy:      req.CreatedBy,
	}
	if err := h.App.Agents.CreateAgent(c.Request.Context(), agent); err != nil {
		Internal(c, fmt.Sprintf("CreateAgentHandler: failed to create agent: %v", err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": agent})
}

func (h *APIHandler) ListAgentsHandler(c *gin.Context) {
	agents, err := h.App.Agents.ListAgents(c.Request.Context())
	if err != nil {
		Internal(c, fmt.Sprintf("ListAgentsHandler: failed to list agents: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": agents})
}

// RunAgentHandler enqueues a QA run. The produced task is scoped to the
// agent, so its poll endpoint lives under /qa-agents rather than a
// project.
func (h *APIHandler) RunAgentHandler(c *gin.Context) {
	agentID, err := parseUUIDParam(c, "agentId")
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	if _, err := h.App.Agents.GetAgent(c.Request.Context(), agentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, fmt.Sprintf("QA agent %s not found", agentID))
			return
		}
		Internal(c, fmt.Sprintf("RunAgentHandler: failed to get agent: %v", err))
		return
	}

	task, err := h.App.Registry.Create(c.Request.Context(), uuid.New(), agentID, models.TaskKindQARun)
	if err != nil {
		Internal(c, fmt.Sprintf("RunAgentHandler: failed to create task: %v", err))
		return
	}

	if err := h.App.JobClient.EnqueueQARun(c.Request.Context(), task.ID, agentID); err != nil {
		if failErr := h.App.Registry.Fail(c.Request.Context(), task.ID, "failed to enqueue job"); failErr != nil {
			log.Errorf("Failed to mark task %s failed after enqueue error: %v", task.ID, failErr)
		}
		Internal(c, fmt.Sprintf("RunAgentHandler: failed to enqueue job: %v", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task_id": task.ID,
		"status":  models.TaskStatusProcessing,
	})
}

// AgentRunStatusHandler polls a QA run task, scoped to the agent the
// same way project task polls are scoped to their project.
func (h *APIHandler) AgentRunStatusHandler(c *gin.Context) {
	agentID, err := parseUUIDParam(c, "agentId")
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	taskID, err := parseUUIDParam(c, "taskId")
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	task, err := h.App.Registry.Get(c.Request.Context(), taskID, agentID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"status": "not_found"})
			return
		}
		Internal(c, fmt.Sprintf("AgentRunStatusHandler: failed to get task: %v", err))
		return
	}

	c.JSON(http.StatusOK, taskStatusResponse(task))
}
