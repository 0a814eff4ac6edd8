package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cohort-ledger-api/internal/dto"
	"github.com/noah-isme/cohort-ledger-api/internal/models"
	appErrors "github.com/noah-isme/cohort-ledger-api/pkg/errors"
)

type mockModuleRepo struct {
	modules map[string]models.Module
}

func (m *mockModuleRepo) List(ctx context.Context, filter models.ModuleFilter) ([]models.Module, error) {
	out := []models.Module{}
	for _, mod := range m.modules {
		out = append(out, mod)
	}
	return out, nil
}

func (m *mockModuleRepo) FindByID(ctx context.Context, id string) (*models.Module, error) {
	mod, ok := m.modules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &mod, nil
}

func (m *mockModuleRepo) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	for id, mod := range m.modules {
		if id != excludeID && strings.EqualFold(mod.Code, code) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockModuleRepo) Create(ctx context.Context, module *models.Module) error {
	module.ID = "m-new"
	m.modules[module.ID] = *module
	return nil
}

func (m *mockModuleRepo) Update(ctx context.Context, module *models.Module) error {
	m.modules[module.ID] = *module
	return nil
}

func (m *mockModuleRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.modules[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.modules, id)
	return nil
}

type mockInstructorRepo struct {
	fakeInstructorRepo
	archived []string
}

func (m *mockInstructorRepo) List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, error) {
	return nil, nil
}

func (m *mockInstructorRepo) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Instructor, error) {
	return m.fakeInstructorRepo.FindByID(ctx, exec, id)
}

func (m *mockInstructorRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	for id, i := range m.instructors {
		if id != excludeID && strings.EqualFold(i.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockInstructorRepo) Create(ctx context.Context, instructor *models.Instructor) error {
	instructor.ID = "i-new"
	m.instructors[instructor.ID] = *instructor
	return nil
}

func (m *mockInstructorRepo) Update(ctx context.Context, instructor *models.Instructor) error {
	m.instructors[instructor.ID] = *instructor
	return nil
}

func (m *mockInstructorRepo) Archive(ctx context.Context, id string) error {
	if _, ok := m.instructors[id]; !ok {
		return sql.ErrNoRows
	}
	m.archived = append(m.archived, id)
	return nil
}

func (m *mockInstructorRepo) Delete(ctx context.Context, id string) error {
	delete(m.instructors, id)
	return nil
}

func TestModuleServiceNormalisesCode(t *testing.T) {
	repo := &mockModuleRepo{modules: map[string]models.Module{"m1": {ID: "m1", Code: "ALGO1"}}}
	svc := NewModuleService(repo, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, dto.CreateModuleRequest{Name: "Réseaux", Code: " net2 ", Weight: 0.4})
	require.NoError(t, err)
	assert.Equal(t, "NET2", created.Code)
	assert.True(t, created.Active)

	_, err = svc.Create(ctx, dto.CreateModuleRequest{Name: "Algo", Code: "algo1"})
	assert.True(t, appErrors.IsConflict(err))

	_, err = svc.Create(ctx, dto.CreateModuleRequest{Name: "Bad", Code: "X", Weight: 1.5})
	assert.True(t, appErrors.IsValidation(err))

	code := "net2"
	_, err = svc.Update(ctx, "m1", dto.UpdateModuleRequest{Code: &code})
	assert.True(t, appErrors.IsConflict(err))

	_, err = svc.Get(ctx, "ghost")
	assert.True(t, appErrors.IsNotFound(err))
	assert.True(t, appErrors.IsNotFound(svc.Delete(ctx, "ghost")))
}

func TestInstructorServiceMissionAndArchive(t *testing.T) {
	repo := &mockInstructorRepo{fakeInstructorRepo: fakeInstructorRepo{instructors: map[string]models.Instructor{
		"i1": {ID: "i1", LastName: "Durand", Email: "durand@example.com"},
	}}}
	svc := NewInstructorService(repo, nil, nil)
	ctx := context.Background()

	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, -2, 0)
	_, err := svc.Create(ctx, dto.CreateInstructorRequest{LastName: "Petit", Email: "petit@example.com", MissionStart: &start, MissionEnd: &end})
	require.Error(t, err)
	assert.Contains(t, appErrors.FromError(err).Fields, "dateFinMission")

	_, err = svc.Create(ctx, dto.CreateInstructorRequest{LastName: "Dup", Email: "DURAND@example.com"})
	assert.True(t, appErrors.IsConflict(err))

	end = start.AddDate(0, 9, 0)
	created, err := svc.Create(ctx, dto.CreateInstructorRequest{LastName: "Petit", Email: "petit@example.com", MissionStart: &start, MissionEnd: &end})
	require.NoError(t, err)
	assert.Equal(t, "i-new", created.ID)

	require.NoError(t, svc.Archive(ctx, "i1"))
	assert.Equal(t, []string{"i1"}, repo.archived)
	assert.True(t, appErrors.IsNotFound(svc.Archive(ctx, "ghost")))

	_, err = svc.Get(ctx, "ghost")
	assert.True(t, appErrors.IsNotFound(err))
}
