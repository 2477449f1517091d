// Package web provides the HTTP handlers of the flow instance API.
package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/flowdesk/flowdesk/pkg/executors"
	"github.com/flowdesk/flowdesk/pkg/models"
	"github.com/flowdesk/flowdesk/pkg/persistence"
	"github.com/flowdesk/flowdesk/pkg/services"
)

// UserIDHeader carries the acting user's ID. Authentication happens upstream;
// this header is the trusted seam the gateway fills in.
const UserIDHeader = "X-User-ID"

type APIHandlers struct {
	instances   *services.InstanceService
	templates   *services.TemplateService
	projects    *services.ProjectService
	validator   *validator.Validate
	registry    *executors.Registry
	persistence persistence.Persistence
}

func NewAPIHandlers(
	instances *services.InstanceService,
	templates *services.TemplateService,
	projects *services.ProjectService,
	validate *validator.Validate,
	registry *executors.Registry,
	p persistence.Persistence,
) *APIHandlers {
	return &APIHandlers{
		instances:   instances,
		templates:   templates,
		projects:    projects,
		validator:   validate,
		registry:    registry,
		persistence: p,
	}
}

func userID(c fiber.Ctx) string {
	return c.Get(UserIDHeader)
}

func (h *APIHandlers) ListInstances(c fiber.Ctx) error {
	opts := persistence.ListInstancesOptions{
		ProjectID: c.Query("project_id"),
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.InstanceStatus(statusStr)
		opts.Status = &status
	}

	instances, err := h.instances.List(c.Context(), opts)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"instances":   instances,
		"total_count": len(instances),
	})
}

func (h *APIHandlers) CreateInstance(c fiber.Ctx) error {
	var req CreateInstanceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	instance, err := h.instances.Create(c.Context(), services.CreateInstanceParams{
		ProjectID:  req.ProjectID,
		TemplateID: req.TemplateID,
		Context:    req.Context,
		CreatedBy:  userID(c),
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(instance)
}

func (h *APIHandlers) GetInstance(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Instance ID is required")
	}

	instance, err := h.instances.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(instance)
}

func (h *APIHandlers) UpdateInstance(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Instance ID is required")
	}

	var req UpdateInstanceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	instance, err := h.instances.Update(c.Context(), id, services.UpdateInstanceParams{
		Nodes:      req.Nodes,
		Edges:      req.Edges,
		NodeData:   req.NodeData,
		NodeStates: req.NodeStates,
		Context:    req.Context,
		Logs:       req.Logs,
		UpdatedBy:  userID(c),
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(instance)
}

func (h *APIHandlers) DeleteInstance(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Instance ID is required")
	}

	force := false

	if forceStr := c.Query("force"); forceStr != "" {
		parsed, err := strconv.ParseBool(forceStr)
		if err != nil {
			return badRequest(c, "Invalid force flag")
		}

		force = parsed
	}

	if err := h.instances.Delete(c.Context(), id, userID(c), force); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) StartInstance(c fiber.Ctx) error {
	return h.transition(c, h.instances.Start)
}

func (h *APIHandlers) PauseInstance(c fiber.Ctx) error {
	return h.transition(c, h.instances.Pause)
}

func (h *APIHandlers) ResumeInstance(c fiber.Ctx) error {
	return h.transition(c, h.instances.Resume)
}

func (h *APIHandlers) StopInstance(c fiber.Ctx) error {
	return h.transition(c, h.instances.Stop)
}

func (h *APIHandlers) transition(c fiber.Ctx, op func(ctx context.Context, id, userID string) (*models.FlowInstance, error)) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Instance ID is required")
	}

	instance, err := op(c.Context(), id, userID(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(instance)
}

// ExecuteNode runs one node and returns the updated instance. The call
// succeeds with a 200 whether the node completed or failed; the node outcome
// lives in node_states.
func (h *APIHandlers) ExecuteNode(c fiber.Ctx) error {
	id := c.Params("id")
	nodeID := c.Params("nodeId")

	if id == "" || nodeID == "" {
		return badRequest(c, "Instance ID and node ID are required")
	}

	var input map[string]any
	if err := c.Bind().JSON(&input); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	instance, err := h.instances.ExecuteNode(c.Context(), id, nodeID, input, userID(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(instance)
}

func (h *APIHandlers) GetInstanceLogs(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Instance ID is required")
	}

	logs, err := h.instances.GetLogs(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"logs": logs})
}

func (h *APIHandlers) GetNodeLogs(c fiber.Ctx) error {
	id := c.Params("id")
	nodeID := c.Params("nodeId")

	if id == "" || nodeID == "" {
		return badRequest(c, "Instance ID and node ID are required")
	}

	logs, err := h.instances.GetNodeLogs(c.Context(), id, nodeID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"logs": logs})
}

func (h *APIHandlers) ListTemplates(c fiber.Ctx) error {
	templates, err := h.templates.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"templates": templates})
}

func (h *APIHandlers) GetTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	template, err := h.templates.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(template)
}

func (h *APIHandlers) CreateTemplate(c fiber.Ctx) error {
	var req CreateTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	template, err := h.templates.Create(c.Context(), &models.FlowTemplate{
		Name:        req.Name,
		Type:        req.Type,
		Version:     req.Version,
		Status:      req.Status,
		Nodes:       req.Nodes,
		Edges:       req.Edges,
		Metadata:    req.Metadata,
		Description: req.Description,
		CreatedBy:   userID(c),
		UpdatedBy:   userID(c),
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(template)
}

func (h *APIHandlers) UpdateTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	var req CreateTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	template, err := h.templates.Update(c.Context(), id, &models.FlowTemplate{
		Name:        req.Name,
		Type:        req.Type,
		Version:     req.Version,
		Status:      req.Status,
		Nodes:       req.Nodes,
		Edges:       req.Edges,
		Metadata:    req.Metadata,
		Description: req.Description,
		UpdatedBy:   userID(c),
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(template)
}

func (h *APIHandlers) DeleteTemplate(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Template ID is required")
	}

	if err := h.templates.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ListProjects(c fiber.Ctx) error {
	projects, err := h.projects.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"projects": projects})
}

func (h *APIHandlers) GetProject(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Project ID is required")
	}

	project, err := h.projects.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(project)
}

func (h *APIHandlers) CreateProject(c fiber.Ctx) error {
	var req CreateProjectRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	project, err := h.projects.Create(c.Context(), &models.Project{
		Name:          req.Name,
		ProjectNumber: req.ProjectNumber,
		Description:   req.Description,
		CreatedBy:     userID(c),
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(project)
}

func (h *APIHandlers) UpdateProject(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Project ID is required")
	}

	var req CreateProjectRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	project, err := h.projects.Update(c.Context(), id, &models.Project{
		Name:          req.Name,
		ProjectNumber: req.ProjectNumber,
		Description:   req.Description,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(project)
}

func (h *APIHandlers) DeleteProject(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Project ID is required")
	}

	if err := h.projects.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()

	repositoryCheck := "Persistence layer is healthy"
	repOk := true

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		repositoryCheck = "Persistence layer is unhealthy: " + err.Error()
		repOk = false
	}

	status := "unhealthy"
	message := "Flowdesk API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Flowdesk API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
