package apihandlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"pergaminos/internal/app"
	"pergaminos/internal/models"
	"pergaminos/internal/store"
	"pergaminos/internal/uploads"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type APIHandler struct {
	App *app.App
}

func NewAPIHandler(app *app.App) *APIHandler {
	return &APIHandler{App: app}
}

// RegisterRoutes mounts every endpoint under the /api group.
func (h *APIHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		projects := api.Group("/projects")
		{
			projects.POST("", h.CreateProjectHandler)
			projects.GET("", h.ListProjectsHandler)
			projects.GET("/:projectId", h.GetProjectHandler)

			projects.POST("/:projectId/documents/upload", h.UploadDocumentsHandler)
			projects.GET("/:projectId/documents", h.ListDocumentsHandler)
			projects.GET("/:projectId/documents/download", h.DownloadHandler)

			projects.POST("/:projectId/documents/reorder", h.ReorderHandler(models.TaskKindReorder))
			projects.POST("/:projectId/documents/process-reorder", h.ReorderHandler(models.TaskKindProcess))
			projects.POST("/:projectId/documents/process-rename-reorder", h.ManualChangesHandler)

			projects.GET("/:projectId/reorder-status/:taskId", h.TaskStatusHandler)
			projects.GET("/:projectId/process-status/:taskId", h.TaskStatusHandler)

			projects.POST("/:projectId/ask-ai", h.AskAIHandler)
		}

		agents := api.Group("/qa-agents")
		{
			agents.POST("", h.CreateAgentHandler)
			agents.GET("", h.ListAgentsHandler)
			agents.POST("/:agentId/run", h.RunAgentHandler)
			agents.GET("/:agentId/run-status/:taskId", h.AgentRunStatusHandler)
		}

		api.GET("/dashboard/stats", h.DashboardStatsHandler)
		api.GET("/health", h.HealthHandler)
	}
}

// parseUUIDParam reads a path parameter as a UUID.
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %q", name, c.Param(name))
	}
	return id, nil
}

// CreateProjectRequest represents the JSON body for creating a project.
type CreateProjectRequest struct {
	Name                 string  `json:"name" binding:"required"`
	Description          *string `json:"description"`
	CompanyID            string  `json:"company_id"`
	SemanticInstructions *string `json:"semantic_instructions"`
	CreatedBy            string  `json:"created_by"`
}

func (h *APIHandler) CreateProjectHandler(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	project := &models.Project{
		ID:                   uuid.New(),
		Name:                 req.Name,
		Description:          req.Description,
		CompanyID:            req.CompanyID,
		Status:               models.ProjectStatusActive,
		SemanticInstructions: req.SemanticInstructions,
		CreatedAt:            time.Now(),
		CreatedBy:            req.CreatedBy,
	}
	if err := h.App.Projects.CreateProject(c.Request.Context(), project); err != nil {
		Internal(c, fmt.Sprintf("CreateProjectHandler: failed to create project: %v", err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": project})
}

func (h *APIHandler) ListProjectsHandler(c *gin.Context) {
	projects, err := h.App.Projects.ListProjects(c.Request.Context())
	if err != nil {
		Internal(c, fmt.Sprintf("ListProjectsHandler: failed to list projects: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": projects})
}

func (h *APIHandler) GetProjectHandler(c *gin.Context) {
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
		Internal(c, fmt.Sprintf("GetProjectHandler: failed to get project: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": project})
}

// UploadDocumentsHandler accepts one or more PDFs under the multipart
// field "files". Valid files are persisted, recorded as uploaded and
// handed to the worker; non-PDFs are rejected per file, not per request.
func (h *APIHandler) UploadDocumentsHandler(c *gin.Context) {
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
		Internal(c, fmt.Sprintf("UploadDocumentsHandler: failed to get project: %v", err))
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		BadRequest(c, "Invalid multipart form: "+err.Error())
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		BadRequest(c, "No files provided under field 'files'")
		return
	}

	var created []*models.Document
	var rejected []gin.H
	for _, header := range files {
		if !uploads.IsPDF(header.Filename) {
			rejected = append(rejected, gin.H{"filename": header.Filename, "reason": "only PDF files are accepted"})
			continue
		}

		src, err := header.Open()
		if err != nil {
			Internal(c, fmt.Sprintf("UploadDocumentsHandler: failed to open upload %q: %v", header.Filename, err))
			return
		}

		documentID := uuid.New()
		path, err := h.App.Uploads.Save(projectID, documentID, src)
		src.Close()
		if err != nil {
			Internal(c, fmt.Sprintf("UploadDocumentsHandler: failed to store upload %q: %v", header.Filename, err))
			return
		}

		doc := &models.Document{
			ID:               documentID,
			ProjectID:        projectID,
			Filename:         header.Filename,
			OriginalFilename: header.Filename,
			FilePath:         path,
			Status:           models.DocumentStatusUploaded,
			CreatedAt:        time.Now(),
		}
		if err := h.App.Documents.CreateDocument(c.Request.Context(), doc); err != nil {
			Internal(c, fmt.Sprintf("UploadDocumentsHandler: failed to record document %q: %v", header.Filename, err))
			return
		}

		if err := h.App.JobClient.EnqueueDocumentProcess(c.Request.Context(), doc.ID); err != nil {
			// The document stays uploaded; extraction just never starts.
			// Surfacing the enqueue failure beats silently losing work.
			Internal(c, fmt.Sprintf("UploadDocumentsHandler: failed to enqueue processing for %q: %v", header.Filename, err))
			return
		}
		created = append(created, doc)
	}

	if len(created) == 0 {
		BadRequest(c, "No valid PDF files in upload")
		return
	}

	log.Infof("Uploaded %d documents to project %s (%d rejected)", len(created), projectID, len(rejected))
	c.JSON(http.StatusCreated, gin.H{"data": gin.H{
		"documents": created,
		"rejected":  rejected,
	}})
}

func (h *APIHandler) ListDocumentsHandler(c *gin.Context) {
	projectID, err := parseUUIDParam(c, "projectId")
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	docs, err := h.App.Documents.ListProjectDocuments(c.Request.Context(), projectID)
	if err != nil {
		Internal(c, fmt.Sprintf("ListDocumentsHandler: failed to list documents: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": docs})
}
