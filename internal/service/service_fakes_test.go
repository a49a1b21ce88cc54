package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/intake-service/internal/domain"
	"github.com/spec-kit/intake-service/internal/repository"
)

type fakeUserRepo struct {
	byEmail map[string]*domain.User
	nextID  int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]*domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	if _, exists := r.byEmail[user.Email]; exists {
		return repository.ErrDuplicateEmail
	}
	r.nextID++
	user.ID = fmt.Sprintf("user-%d", r.nextID)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.byEmail[user.Email] = &clone
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			clone := *u
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *u
	return &clone, nil
}

type fakeAppRepo struct {
	apps   []domain.Application
	nextID int
	// failCreate simulates a store outage on insert.
	failCreate bool
}

func (r *fakeAppRepo) Create(_ context.Context, app *domain.Application) error {
	if r.failCreate {
		return errors.New("store down")
	}
	r.nextID++
	app.ID = fmt.Sprintf("app-%d", r.nextID)
	if app.Status == "" {
		app.Status = domain.StatusPending
	}
	app.CreatedAt = time.Now()
	app.UpdatedAt = app.CreatedAt
	r.apps = append(r.apps, *app)
	return nil
}

func (r *fakeAppRepo) GetByID(_ context.Context, id string) (*domain.Application, error) {
	for i := range r.apps {
		if r.apps[i].ID == id {
			clone := r.apps[i]
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAppRepo) ListPage(_ context.Context, limit, offset int) ([]domain.Application, error) {
	if offset >= len(r.apps) {
		return []domain.Application{}, nil
	}
	end := offset + limit
	if end > len(r.apps) {
		end = len(r.apps)
	}
	return append([]domain.Application{}, r.apps[offset:end]...), nil
}

func (r *fakeAppRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.apps)), nil
}

func (r *fakeAppRepo) UpdateStatus(_ context.Context, id string, status domain.ApplicationStatus) (*domain.Application, error) {
	for i := range r.apps {
		if r.apps[i].ID == id {
			r.apps[i].Status = status
			r.apps[i].UpdatedAt = time.Now()
			clone := r.apps[i]
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeDocStore struct {
	uploads  int
	failNext bool
}

func (s *fakeDocStore) AllowedExtension(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".pdf") || strings.HasSuffix(lower, ".png") ||
		strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg")
}

func (s *fakeDocStore) MaxBytes() int64 { return 1 << 20 }

func (s *fakeDocStore) Upload(_ context.Context, filename, _ string, _ io.Reader, _ int64) (string, error) {
	if s.failNext {
		return "", errors.New("object store unreachable")
	}
	s.uploads++
	return "http://store.local/intake/uploads/" + filename, nil
}

type fakeCountCache struct {
	total       int64
	present     bool
	invalidated int
}

func (c *fakeCountCache) Get(_ context.Context) (int64, bool) { return c.total, c.present }

func (c *fakeCountCache) Set(_ context.Context, total int64) {
	c.total = total
	c.present = true
}

func (c *fakeCountCache) Invalidate(_ context.Context) {
	c.present = false
	c.invalidated++
}
