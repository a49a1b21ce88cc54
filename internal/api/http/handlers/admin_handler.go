package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/intake-service/internal/api/dto"
	"github.com/spec-kit/intake-service/internal/domain"
	"github.com/spec-kit/intake-service/internal/service"
	apperrors "github.com/spec-kit/intake-service/pkg/util"
)

// AdminHandler exposes the application review endpoints.
type AdminHandler struct {
	apps *service.ApplicationService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(appService *service.ApplicationService) *AdminHandler {
	return &AdminHandler{apps: appService}
}

// List handles GET /adminPg. Absent or non-numeric page parameters fall back
// to page 1 and the configured default page size.
func (h *AdminHandler) List(c *fiber.Ctx) error {
	page := queryAsInt(c, "page", 1)
	pageSize := queryAsInt(c, "pageSize", 0)

	result, err := h.apps.ListPage(c.UserContext(), page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"studentData": result.Items,
		"meta": dto.PageMeta{
			Total:      result.Total,
			Page:       result.Page,
			PageSize:   result.PageSize,
			TotalPages: result.TotalPages,
		},
	})
}

// UpdateStatus handles PUT /adminPg/:id.
func (h *AdminHandler) UpdateStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return apperrors.NewValidationError("id required", nil)
	}

	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}

	updated, err := h.apps.UpdateStatus(c.UserContext(), id, domain.ApplicationStatus(req.Status))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message":        fmt.Sprintf("Application %s successfully", strings.ToLower(req.Status)),
		"updApplication": updated,
	})
}

func queryAsInt(c *fiber.Ctx, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
