package apihandlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"pergaminos/internal/models"
	"pergaminos/internal/store"

	"github.com/gin-gonic/gin"
)

// AskAIRequest defines the expected JSON body for the ask-ai endpoint.
type AskAIRequest struct {
	Question string `json:"question" binding:"required"`
}

// AskAIResponse defines the JSON response for a successful answer.
type AskAIResponse struct {
	Answer  string `json:"answer"`
	Sources int    `json:"sources"`
}

// AskAIHandler answers a question about a project's completed documents
// synchronously. A disabled provider maps to 503 so clients can
// distinguish "try later" from a real failure.
func (h *APIHandler) AskAIHandler(c *gin.Context) {
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
		Internal(c, fmt.Sprintf("AskAIHandler: failed to get project: %v", err))
		return
	}

	var req AskAIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	answer, sources, err := h.App.Answerer.Answer(c.Request.Context(), projectID, req.Question)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrAIUnavailable):
			Unavailable(c, err.Error())
		case errors.Is(err, models.ErrValidation):
			BadRequest(c, err.Error())
		default:
			Internal(c, fmt.Sprintf("AskAIHandler: failed to generate answer: %v", err))
		}
		return
	}

	c.JSON(http.StatusOK, AskAIResponse{Answer: answer, Sources: sources})
}

// DownloadHandler returns a best-effort listing of the processed
// document names in display order. Actual file merging is out of scope;
// clients consume the listing to build their own export.
func (h *APIHandler) DownloadHandler(c *gin.Context) {
	projectID, err := parseUUIDParam(c, "projectId")
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	project, err := h.App.Projects.GetProject(c.Request.Context(), projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, fmt.Sprintf("Project %s not found", projectID))
			return
		}
		Internal(c, fmt.Sprintf("DownloadHandler: failed to get project: %v", err))
		return
	}

	docs, err := h.App.Documents.ListProjectDocuments(c.Request.Context(), projectID)
	if err != nil {
		Internal(c, fmt.Sprintf("DownloadHandler: failed to list documents: %v", err))
		return
	}

	names := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.Status == models.DocumentStatusCompleted {
			// OriginalFilename carries the processed name once a rename ran;
			// Filename keeps the name the file was uploaded under.
			names = append(names, doc.OriginalFilename)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"filename":     fmt.Sprintf("%s-documents.zip", project.Name),
		"documents":    names,
		"generated_at": time.Now().UTC(),
	})
}

// DashboardStatsHandler aggregates document counts by status plus the
// project total.
func (h *APIHandler) DashboardStatsHandler(c *gin.Context) {
	counts, err := h.App.Documents.CountDocumentsByStatus(c.Request.Context())
	if err != nil {
		Internal(c, fmt.Sprintf("DashboardStatsHandler: failed to count documents: %v", err))
		return
	}
	projectCount, err := h.App.Projects.CountProjects(c.Request.Context())
	if err != nil {
		Internal(c, fmt.Sprintf("DashboardStatsHandler: failed to count projects: %v", err))
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"projects":            projectCount,
		"documents_total":     total,
		"documents_by_status": counts,
	}})
}

func (h *APIHandler) HealthHandler(c *gin.Context) {
	if err := h.App.Ping(c.Request.Context()); err != nil {
		JSONError(c, http.StatusServiceUnavailable, "unhealthy", fmt.Sprintf("database unreachable: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
