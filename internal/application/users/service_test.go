package users

import (
	"context"
	"testing"

	"harbor-backend/internal/constants"
	"harbor-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func setupUsersTest(t *testing.T) *Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return &Service{DB: db}
}

func TestCreateUser(t *testing.T) {
	svc := setupUsersTest(t)

	u, err := svc.CreateUser(context.Background(), CreateUserInput{
		Email:    "Manager@Harbor.Example",
		Password: "str0ng-Pass!",
		Fullname: "Maya O'Brien",
		Role:     constants.Manager,
	})
	require.NoError(t, err)
	assert.Equal(t, "manager@harbor.example", u.Email)
	assert.Equal(t, constants.Manager, u.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("str0ng-Pass!")))

	// Duplicate email, regardless of casing.
	_, err = svc.CreateUser(context.Background(), CreateUserInput{
		Email:    "manager@harbor.example",
		Password: "an0ther-Pass!",
		Fullname: "Maya O'Brien",
		Role:     constants.Viewer,
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestCreateUser_Validation(t *testing.T) {
	svc := setupUsersTest(t)

	cases := []struct {
		name string
		in   CreateUserInput
	}{
		{"bad email", CreateUserInput{Email: "not-an-email", Password: "str0ng-Pass!", Fullname: "Maya"}},
		{"weak password", CreateUserInput{Email: "a@b.co", Password: "short", Fullname: "Maya"}},
		{"no special char", CreateUserInput{Email: "a@b.co", Password: "password123", Fullname: "Maya"}},
		{"empty fullname", CreateUserInput{Email: "a@b.co", Password: "str0ng-Pass!", Fullname: "  "}},
		{"digits in fullname", CreateUserInput{Email: "a@b.co", Password: "str0ng-Pass!", Fullname: "Maya 9"}},
		{"unknown role", CreateUserInput{Email: "a@b.co", Password: "str0ng-Pass!", Fullname: "Maya", Role: "owner"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateUser(context.Background(), tc.in)
			assert.Error(t, err)
		})
	}
}

func TestCreateUser_DefaultRole(t *testing.T) {
	svc := setupUsersTest(t)
	u, err := svc.CreateUser(context.Background(), CreateUserInput{
		Email:    "viewer@harbor.example",
		Password: "str0ng-Pass!",
		Fullname: "Sam Reyes",
	})
	require.NoError(t, err)
	assert.Equal(t, constants.Viewer, u.Role)
}
