package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stridehq/product-lifecycle-api/internal/models"
	"github.com/stridehq/product-lifecycle-api/internal/repository"
)

func setupAuthService(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Team{},
		&models.TeamMember{},
	)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return NewAuthService(repository.NewUserRepository(db)), db
}

func TestAuthService_Signup(t *testing.T) {
	svc, db := setupAuthService(t)

	user, err := svc.Signup(SignupInput{
		Email:    "Dana@Example.com",
		Name:     "Dana",
		Password: "supersecret",
	})
	require.NoError(t, err)
	require.Equal(t, "dana@example.com", user.Email)
	require.NotEmpty(t, user.PasswordHash)
	require.NotEqual(t, "supersecret", user.PasswordHash)

	// a personal team is created with the user as owner
	var member models.TeamMember
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&member).Error)
	require.Equal(t, models.RoleOwner, member.Role)

	var team models.Team
	require.NoError(t, db.First(&team, member.TeamID).Error)
	require.Equal(t, "Dana's Team", team.Name)
	require.NotEmpty(t, team.InviteCode)
}

func TestAuthService_Signup_DuplicateEmail(t *testing.T) {
	svc, _ := setupAuthService(t)

	_, err := svc.Signup(SignupInput{Email: "dana@example.com", Name: "Dana", Password: "supersecret"})
	require.NoError(t, err)

	// the check is case-insensitive
	_, err = svc.Signup(SignupInput{Email: "DANA@example.com", Name: "Other", Password: "supersecret"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestAuthService_Signup_ShortPassword(t *testing.T) {
	svc, _ := setupAuthService(t)

	_, err := svc.Signup(SignupInput{Email: "dana@example.com", Name: "Dana", Password: "short"})
	require.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestAuthService_Login(t *testing.T) {
	svc, _ := setupAuthService(t)

	created, err := svc.Signup(SignupInput{Email: "dana@example.com", Name: "Dana", Password: "supersecret"})
	require.NoError(t, err)

	user, err := svc.Login(LoginInput{Email: "dana@example.com", Password: "supersecret"})
	require.NoError(t, err)
	require.Equal(t, created.ID, user.ID)

	_, err = svc.Login(LoginInput{Email: "dana@example.com", Password: "wrongpassword"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(LoginInput{Email: "nobody@example.com", Password: "supersecret"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}
