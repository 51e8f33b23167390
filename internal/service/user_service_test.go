package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
)

type mockUserRepo struct {
	user        *models.User
	users       []models.User
	updatedRole models.UserRole
	roleUpdated bool
	active      *bool
	profileName string
	auditLogs   []*models.AuditLog
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.user == nil {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	return m.users, len(m.users), nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id, fullName string, updatedAt time.Time) error {
	m.profileName = fullName
	if m.user != nil {
		m.user.FullName = fullName
	}
	return nil
}

func (m *mockUserRepo) UpdateRole(ctx context.Context, id string, role models.UserRole, updatedAt time.Time) error {
	m.roleUpdated = true
	m.updatedRole = role
	if m.user != nil {
		m.user.Role = role
	}
	return nil
}

func (m *mockUserRepo) UpdateActive(ctx context.Context, id string, active bool, updatedAt time.Time) error {
	m.active = &active
	if m.user != nil {
		m.user.Active = active
	}
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin, Email: "admin@uni.edu"}
}

func TestUserUpdateRoleNormalizesCase(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "user-1", Role: models.RoleStudent, Active: true}}
	svc := NewUserService(repo, nil, nil)

	user, err := svc.UpdateRole(context.Background(), adminClaims(), "user-1", UpdateRoleRequest{Role: "professor"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleProfessor, user.Role)
	assert.Equal(t, models.RoleProfessor, repo.updatedRole)
}

func TestUserUpdateRoleUnknownRole(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "user-1", Role: models.RoleStudent}}
	svc := NewUserService(repo, nil, nil)

	_, err := svc.UpdateRole(context.Background(), adminClaims(), "user-1", UpdateRoleRequest{Role: "superuser"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.False(t, repo.roleUpdated)
}

func TestUserUpdateRoleSelfDemotion(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "admin-1", Role: models.RoleAdmin}}
	svc := NewUserService(repo, nil, nil)

	_, err := svc.UpdateRole(context.Background(), adminClaims(), "admin-1", UpdateRoleRequest{Role: "STUDENT"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "demote")
	assert.False(t, repo.roleUpdated)
}

func TestUserUpdateRoleRequiresAdmin(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "user-1", Role: models.RoleStudent}}
	svc := NewUserService(repo, nil, nil)

	_, err := svc.UpdateRole(context.Background(), professorClaims(), "user-1", UpdateRoleRequest{Role: "ADMIN"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUserUpdateActiveSelfDeactivation(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "admin-1", Role: models.RoleAdmin, Active: true}}
	svc := NewUserService(repo, nil, nil)

	inactive := false
	_, err := svc.UpdateActive(context.Background(), adminClaims(), "admin-1", UpdateActiveRequest{Active: &inactive})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.active)
}

func TestUserUpdateActiveSuccess(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "user-1", Role: models.RoleStudent, Active: true}}
	svc := NewUserService(repo, nil, nil)

	inactive := false
	user, err := svc.UpdateActive(context.Background(), adminClaims(), "user-1", UpdateActiveRequest{Active: &inactive})
	require.NoError(t, err)
	assert.False(t, user.Active)
}

func TestUserUpdateProfile(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "user-1", FullName: "Old Name"}}
	svc := NewUserService(repo, nil, nil)

	user, err := svc.UpdateProfile(context.Background(), "user-1", UpdateProfileRequest{FullName: "Ana Souza"})
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", user.FullName)
}

func TestUserUpdateProfileValidation(t *testing.T) {
	repo := &mockUserRepo{user: &models.User{ID: "user-1"}}
	svc := NewUserService(repo, nil, nil)

	_, err := svc.UpdateProfile(context.Background(), "user-1", UpdateProfileRequest{FullName: "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.profileName)
}

func TestUserGetUnknown(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, nil, nil)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
