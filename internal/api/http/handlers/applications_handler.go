package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/intake-service/internal/service"
	apperrors "github.com/spec-kit/intake-service/pkg/util"
)

// ApplicationsHandler accepts student application submissions.
type ApplicationsHandler struct {
	apps *service.ApplicationService
}

// NewApplicationsHandler constructs handler.
func NewApplicationsHandler(appService *service.ApplicationService) *ApplicationsHandler {
	return &ApplicationsHandler{apps: appService}
}

// Submit handles POST /applicationForm: multipart form fields plus at most
// one document under the "file" field. The file is optional.
func (h *ApplicationsHandler) Submit(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return apperrors.NewValidationError("multipart form required", nil)
	}

	input := service.SubmissionInput{Details: map[string]string{}}
	for key, values := range form.Value {
		if len(values) == 0 {
			continue
		}
		val := values[0]
		switch key {
		case "name", "fullName":
			input.FullName = val
		case "email":
			input.Email = val
		case "phone":
			input.Phone = val
		case "program":
			input.Program = val
		default:
			input.Details[key] = val
		}
	}

	var doc *service.UploadedDocument
	if fileHeader, err := c.FormFile("file"); err == nil && fileHeader != nil {
		file, err := fileHeader.Open()
		if err != nil {
			return apperrors.NewUploadFailed(err)
		}
		defer file.Close()
		doc = &service.UploadedDocument{
			Filename:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Size:        fileHeader.Size,
			Reader:      file,
		}
	}

	app, err := h.apps.Submit(c.UserContext(), input, doc)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "Form submitted successfully",
		"data":    app,
	})
}
