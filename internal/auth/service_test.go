package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gamevault/gamevault-backend/internal/users"
	pkgauth "github.com/gamevault/gamevault-backend/pkg/auth"
	"github.com/gamevault/gamevault-backend/pkg/config"
	"github.com/gamevault/gamevault-backend/pkg/db/models"
	"github.com/gamevault/gamevault-backend/pkg/enums"
	pkgerrors "github.com/gamevault/gamevault-backend/pkg/errors"
	"github.com/gamevault/gamevault-backend/pkg/security"
)

var testJWT = config.JWTConfig{
	Secret:            "test-secret-test-secret-test-secret",
	Issuer:            "gamevault",
	ExpirationMinutes: 30,
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(users.NewRepository(db), testJWT, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func seedUser(t *testing.T, db *gorm.DB, email, password string, active bool) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  "Player One",
		Role:         enums.UserRoleCustomer,
		IsActive:     active,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestLoginSuccess(t *testing.T) {
	svc, db := newTestService(t)
	user := seedUser(t, db, "player@example.com", "hunter2hunter2", true)

	result, err := svc.Login(context.Background(), "Player@Example.com ", "hunter2hunter2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.AccessToken == "" {
		t.Fatal("expected access token")
	}
	if result.User == nil || result.User.ID != user.ID {
		t.Fatalf("expected user in result, got %+v", result.User)
	}

	claims, err := pkgauth.ParseAccessToken(testJWT, result.AccessToken)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != enums.UserRoleCustomer {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	var reloaded models.User
	if err := db.First(&reloaded, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if reloaded.LastLoginAt == nil {
		t.Fatal("expected last_login_at stamped")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, db := newTestService(t)
	seedUser(t, db, "player@example.com", "hunter2hunter2", true)

	_, err := svc.Login(context.Background(), "player@example.com", "wrong-password")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginUnknownEmailMatchesWrongPassword(t *testing.T) {
	svc, db := newTestService(t)
	seedUser(t, db, "player@example.com", "hunter2hunter2", true)

	_, unknownErr := svc.Login(context.Background(), "ghost@example.com", "hunter2hunter2")
	_, wrongErr := svc.Login(context.Background(), "player@example.com", "bad")

	unknownTyped := pkgerrors.As(unknownErr)
	wrongTyped := pkgerrors.As(wrongErr)
	if unknownTyped == nil || wrongTyped == nil {
		t.Fatalf("expected typed errors, got %v and %v", unknownErr, wrongErr)
	}
	if unknownTyped.Message() != wrongTyped.Message() {
		t.Fatal("unknown email and bad password must be indistinguishable")
	}
}

func TestLoginInactiveUser(t *testing.T) {
	svc, db := newTestService(t)
	seedUser(t, db, "player@example.com", "hunter2hunter2", false)

	_, err := svc.Login(context.Background(), "player@example.com", "hunter2hunter2")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for inactive user, got %v", err)
	}
}
