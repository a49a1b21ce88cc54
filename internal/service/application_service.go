package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/intake-service/internal/domain"
	"github.com/spec-kit/intake-service/internal/events"
	"github.com/spec-kit/intake-service/internal/repository"
	apperrors "github.com/spec-kit/intake-service/pkg/util"
)

// DocumentStore abstracts the object store used for applicant documents.
type DocumentStore interface {
	AllowedExtension(filename string) bool
	MaxBytes() int64
	Upload(ctx context.Context, filename, contentType string, r io.Reader, size int64) (string, error)
}

// CountCache abstracts the cached applications total.
type CountCache interface {
	Get(ctx context.Context) (int64, bool)
	Set(ctx context.Context, total int64)
	Invalidate(ctx context.Context)
}

// SubmissionInput carries the multipart form fields of one application.
type SubmissionInput struct {
	FullName string
	Email    string
	Phone    string
	Program  string
	Details  map[string]string
}

// UploadedDocument is the single file attached to a submission, if any.
type UploadedDocument struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// Page is one slice of the admin listing plus its count metadata.
type Page struct {
	Items      []domain.Application
	Total      int64
	Page       int
	PageSize   int
	TotalPages int64
}

// ApplicationService coordinates submission and admin workflows.
type ApplicationService struct {
	apps            repository.ApplicationRepository
	documents       DocumentStore
	counts          CountCache
	dispatcher      events.Dispatcher
	defaultPageSize int
}

// NewApplicationService builds the service.
func NewApplicationService(apps repository.ApplicationRepository, documents DocumentStore, counts CountCache, dispatcher events.Dispatcher, defaultPageSize int) *ApplicationService {
	if defaultPageSize <= 0 {
		defaultPageSize = 2
	}
	return &ApplicationService{
		apps:            apps,
		documents:       documents,
		counts:          counts,
		dispatcher:      dispatcher,
		defaultPageSize: defaultPageSize,
	}
}

// Submit uploads the document (when present) and persists the application.
// The upload happens first; if it fails no application row is created.
func (s *ApplicationService) Submit(ctx context.Context, input SubmissionInput, doc *UploadedDocument) (*domain.Application, error) {
	if input.FullName == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}

	var documentURL *string
	if doc != nil {
		if !s.documents.AllowedExtension(doc.Filename) {
			return nil, apperrors.NewValidationError("file type not allowed", map[string]any{"filename": doc.Filename})
		}
		if max := s.documents.MaxBytes(); max > 0 && doc.Size > max {
			return nil, apperrors.NewValidationError("file too large", map[string]any{"max_bytes": max})
		}
		url, err := s.documents.Upload(ctx, doc.Filename, doc.ContentType, doc.Reader, doc.Size)
		if err != nil {
			return nil, apperrors.NewUploadFailed(err)
		}
		documentURL = &url
	}

	app := &domain.Application{
		FullName:    input.FullName,
		Email:       input.Email,
		Phone:       input.Phone,
		Program:     input.Program,
		Details:     input.Details,
		DocumentURL: documentURL,
	}
	if err := s.apps.Create(ctx, app); err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}

	if s.counts != nil {
		s.counts.Invalidate(ctx)
	}
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:            uuid.NewString(),
			Type:          events.EventApplicationSubmitted,
			ApplicationID: app.ID,
			Timestamp:     time.Now(),
			Payload: events.ApplicationSubmittedPayload{
				FullName:    app.FullName,
				Email:       app.Email,
				DocumentURL: app.DocumentURL,
			},
		})
	}

	return app, nil
}

// ListPage returns one page of applications with count metadata. A page past
// the end yields an empty slice, not an error.
func (s *ApplicationService) ListPage(ctx context.Context, page, pageSize int) (*Page, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}

	total, cached := int64(0), false
	if s.counts != nil {
		total, cached = s.counts.Get(ctx)
	}
	if !cached {
		var err error
		total, err = s.apps.Count(ctx)
		if err != nil {
			return nil, apperrors.NewStoreUnavailable(err)
		}
		if s.counts != nil {
			s.counts.Set(ctx, total)
		}
	}

	items, err := s.apps.ListPage(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}

	return &Page{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: TotalPages(total, pageSize),
	}, nil
}

// UpdateStatus sets the status of one application and returns the updated
// record. Repeating the same status is a no-op success.
func (s *ApplicationService) UpdateStatus(ctx context.Context, id string, status domain.ApplicationStatus) (*domain.Application, error) {
	if status == "" {
		return nil, apperrors.NewValidationError("status required", nil)
	}

	before, err := s.apps.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("application", map[string]any{"id": id})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}

	updated, err := s.apps.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("application", map[string]any{"id": id})
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}

	if s.dispatcher != nil && before.Status != updated.Status {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:            uuid.NewString(),
			Type:          events.EventApplicationStatusChanged,
			ApplicationID: updated.ID,
			Timestamp:     time.Now(),
			Payload: events.ApplicationStatusChangedPayload{
				OldStatus: before.Status,
				NewStatus: updated.Status,
			},
		})
	}

	return updated, nil
}

// TotalPages computes ceil(total/pageSize).
func TotalPages(total int64, pageSize int) int64 {
	if pageSize <= 0 {
		return 0
	}
	return (total + int64(pageSize) - 1) / int64(pageSize)
}
