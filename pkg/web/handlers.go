// Package web provides HTTP handlers and REST API endpoints for workflow management.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/flowzen/flowzen/pkg/catalog"
	"github.com/flowzen/flowzen/pkg/identity"
	"github.com/flowzen/flowzen/pkg/models"
	"github.com/flowzen/flowzen/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// Services groups the service layer the handlers call into.
type Services struct {
	Workflow      *services.Workflow
	Templates     *services.Templates
	Publishing    *services.Publishing
	Execution     *services.Execution
	Documentation *services.Documentation
	Dashboard     *services.Dashboard
	Connections   *services.Connections
}

type APIHandlers struct {
	services  Services
	catalog   *catalog.Catalog
	validator *validator.Validate
}

func NewAPIHandlers(services Services, catalog *catalog.Catalog, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		services:  services,
		catalog:   catalog,
		validator: validator,
	}
}

// Register mounts the API on router. Everything but the health check and the
// catalog requires a user.
func (h *APIHandlers) Register(router fiber.Router, provider identity.Provider) {
	router.Get("/health", h.HealthCheck)
	router.Get("/catalog", h.GetCatalog)

	authenticated := identity.Middleware(provider, unauthorized)

	d := router.Group("/dashboard", authenticated)
	d.Get("/", h.GetDashboard)

	w := router.Group("/workflows", authenticated)
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Get("/:id/graph", h.GetGraph)
	w.Put("/:id/graph", h.SaveGraph)
	w.Put("/:id/templates/:type", h.SaveTemplate)
	w.Put("/:id/publish", h.SetPublish)
	w.Post("/:id/nodes/:nodeId/execute", h.ExecuteNode)
	w.Get("/:id/documentation", h.GetDocumentation)

	c := router.Group("/connections", authenticated)
	c.Get("/", h.GetConnections)
	c.Get("/notion/database", h.GetNotionDatabase)
	c.Get("/github/repositories", h.GetGitHubRepositories)
	c.Get("/slack/channels", h.GetSlackChannels)
	c.Get("/:type", h.GetConnection)
	c.Post("/:type", h.Connect)

	auth := router.Group("/auth/callback", authenticated)
	auth.Get("/github", h.GitHubCallback)
	auth.Get("/slack", h.SlackCallback)
}

func currentUserID(c fiber.Ctx) string {
	if user, ok := identity.FromContext(c); ok {
		return user.ID
	}

	return ""
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.services.Workflow.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Flowzen API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "Flowzen API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetCatalog(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"node_types": h.catalog.Entries()})
}

func (h *APIHandlers) GetDashboard(c fiber.Ctx) error {
	summary, err := h.services.Dashboard.Summary(c.Context(), currentUserID(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(summary)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	req, err := parseListWorkflowsRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	workflows, err := h.services.Workflow.List(c.Context(), currentUserID(c), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	response := make([]WorkflowResponse, 0, len(workflows))
	for _, workflow := range workflows {
		response = append(response, newWorkflowResponse(workflow))
	}

	return c.JSON(fiber.Map{
		"workflows": response,
		"pagination": fiber.Map{
			"limit":  req.Limit,
			"offset": req.Offset,
		},
		"sorting": fiber.Map{
			"sort_by":    req.SortBy,
			"sort_order": req.SortOrder,
		},
	})
}

func parseListWorkflowsRequest(c fiber.Ctx) (*services.ListWorkflowsRequest, error) {
	req := &services.ListWorkflowsRequest{
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	if publishedStr := c.Query("published"); publishedStr != "" {
		published, err := strconv.ParseBool(publishedStr)
		if err != nil {
			return nil, err
		}

		req.Published = &published
	}

	return req, nil
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.services.Workflow.Create(c.Context(), currentUserID(c), req.Name, req.Description)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(newWorkflowResponse(created))
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.services.Workflow.FetchByID(c.Context(), currentUserID(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(newWorkflowResponse(workflow))
}

func (h *APIHandlers) GetGraph(c fiber.Ctx) error {
	graph, err := h.services.Workflow.Graph(c.Context(), currentUserID(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(graph)
}

func (h *APIHandlers) SaveGraph(c fiber.Ctx) error {
	var req SaveGraphRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	graph, err := h.services.Workflow.SaveGraph(c.Context(), currentUserID(c), c.Params("id"), req.Nodes, req.Edges)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(graph)
}

// SaveTemplate accepts the connection type name or slug as :type.
func (h *APIHandlers) SaveTemplate(c fiber.Ctx) error {
	connectionType, err := models.ParseConnectionType(c.Params("type"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	var input services.TemplateInput
	if err := c.Bind().JSON(&input); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	message, err := h.services.Templates.Save(
		c.Context(),
		currentUserID(c),
		c.Params("id"),
		models.NodeType(connectionType),
		input,
	)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"message": message})
}

func (h *APIHandlers) SetPublish(c fiber.Ctx) error {
	var req PublishRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	message, err := h.services.Publishing.SetPublish(c.Context(), currentUserID(c), c.Params("id"), *req.Publish)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"message": message, "publish": *req.Publish})
}

// ExecuteNode answers 200 with the structured result, failed or not. Only
// lookup and ownership errors become problems.
func (h *APIHandlers) ExecuteNode(c fiber.Ctx) error {
	result, err := h.services.Execution.ExecuteNode(c.Context(), currentUserID(c), c.Params("id"), c.Params("nodeId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetDocumentation(c fiber.Ctx) error {
	documentation, err := h.services.Documentation.Generate(c.Context(), currentUserID(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"documentation": documentation})
}
