package web

import (
	"github.com/flowzen/flowzen/pkg/models"
	"github.com/flowzen/flowzen/pkg/services"
	"github.com/gofiber/fiber/v3"
)

func (h *APIHandlers) GetConnections(c fiber.Ctx) error {
	connections, err := h.services.Connections.List(c.Context(), currentUserID(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	response := make([]ConnectionResponse, 0, len(connections))
	for _, connection := range connections {
		response = append(response, newConnectionResponse(connection))
	}

	return c.JSON(fiber.Map{"connections": response})
}

func (h *APIHandlers) GetConnection(c fiber.Ctx) error {
	connectionType, err := models.ParseConnectionType(c.Params("type"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	connection, err := h.services.Connections.Get(c.Context(), currentUserID(c), connectionType)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(newConnectionResponse(connection))
}

// Connect binds the credentials in the body. A new binding answers 201; an
// existing one answers 200 with the stored record.
func (h *APIHandlers) Connect(c fiber.Ctx) error {
	connectionType, err := models.ParseConnectionType(c.Params("type"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	credentials, err := models.DecodeCredentials(connectionType, c.Body())
	if err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	result, err := h.services.Connections.Connect(c.Context(), currentUserID(c), credentials)
	if err != nil {
		return handleServiceError(c, err)
	}

	return respondConnect(c, result)
}

func respondConnect(c fiber.Ctx, result *services.ConnectResult) error {
	status := fiber.StatusOK
	if result.Created {
		status = fiber.StatusCreated
	}

	return c.Status(status).JSON(ConnectResponse{
		Connection: newConnectionResponse(result.Connection),
		Created:    result.Created,
		Message:    result.Message,
	})
}

func (h *APIHandlers) GitHubCallback(c fiber.Ctx) error {
	if denied := c.Query("error"); denied != "" {
		return badRequest(c, "github authorization denied: "+denied)
	}

	result, err := h.services.Connections.ExchangeGitHubCode(c.Context(), currentUserID(c), c.Query("code"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return respondConnect(c, result)
}

func (h *APIHandlers) SlackCallback(c fiber.Ctx) error {
	if denied := c.Query("error"); denied != "" {
		return badRequest(c, "slack authorization denied: "+denied)
	}

	result, err := h.services.Connections.ExchangeSlackCode(c.Context(), currentUserID(c), c.Query("code"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return respondConnect(c, result)
}

func (h *APIHandlers) GetNotionDatabase(c fiber.Ctx) error {
	database, err := h.services.Connections.NotionDatabase(c.Context(), currentUserID(c), c.Query("database_id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(database)
}

func (h *APIHandlers) GetGitHubRepositories(c fiber.Ctx) error {
	repositories, err := h.services.Connections.GitHubRepositories(c.Context(), currentUserID(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"repositories": repositories})
}

func (h *APIHandlers) GetSlackChannels(c fiber.Ctx) error {
	channels, err := h.services.Connections.SlackChannels(c.Context(), currentUserID(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"channels": channels})
}
