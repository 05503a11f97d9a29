package service

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"ratestuff.app/backend/internal/dto"
	"ratestuff.app/backend/internal/model"
	"ratestuff.app/backend/pkg/apperror"
)

func TestRegisterBrandCreatesSlugRecord(t *testing.T) {
	userRepo := newMockUserRepo()
	brandRepo := newMockBrandRepo()
	svc := NewAuthService(userRepo, brandRepo)
	ctx := context.Background()

	user, err := svc.Register(ctx, dto.RegisterRequest{
		Username: "AcmeOfficial",
		Email:    "hello@acme.example",
		Password: "supersecret",
		Brand:    true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Kind != model.UserKindBrand {
		t.Fatalf("expected BRAND kind, got %q", user.Kind)
	}

	// Slug defaults to the lowercased username
	brand, err := brandRepo.FindBySlug(ctx, "acmeofficial")
	if err != nil {
		t.Fatalf("expected a brand account for the slug: %v", err)
	}
	if brand.Email != "hello@acme.example" {
		t.Fatalf("brand account must carry the login email, got %q", brand.Email)
	}
}

func TestRegisterRejectsTakenBrandSlug(t *testing.T) {
	userRepo := newMockUserRepo()
	brandRepo := newMockBrandRepo()
	svc := NewAuthService(userRepo, brandRepo)
	ctx := context.Background()

	if _, err := svc.Register(ctx, dto.RegisterRequest{
		Username:  "acme",
		Email:     "first@acme.example",
		Password:  "supersecret",
		Brand:     true,
		BrandSlug: "acme",
	}); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	_, err := svc.Register(ctx, dto.RegisterRequest{
		Username:  "acme-impostor",
		Email:     "second@acme.example",
		Password:  "supersecret",
		Brand:     true,
		BrandSlug: "acme",
	})
	if !errors.Is(err, apperror.ErrDuplicate) {
		t.Fatalf("expected duplicate-slug rejection, got %v", err)
	}
}

func TestRegisterRejectsTakenEmail(t *testing.T) {
	userRepo := newMockUserRepo()
	svc := NewAuthService(userRepo, newMockBrandRepo())
	ctx := context.Background()

	if _, err := svc.Register(ctx, dto.RegisterRequest{
		Username: "first",
		Email:    "shared@example.com",
		Password: "supersecret",
	}); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	_, err := svc.Register(ctx, dto.RegisterRequest{
		Username: "second",
		Email:    "shared@example.com",
		Password: "supersecret",
	})
	if !errors.Is(err, apperror.ErrDuplicate) {
		t.Fatalf("expected duplicate-email rejection, got %v", err)
	}
}

func TestLoginVerifiesPassword(t *testing.T) {
	userRepo := newMockUserRepo()
	svc := NewAuthService(userRepo, newMockBrandRepo())
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("rightpassword"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if err := userRepo.Create(ctx, &model.User{
		Username:     "someone",
		Email:        "someone@example.com",
		PasswordHash: string(hash),
		Kind:         model.UserKindUser,
	}); err != nil {
		t.Fatalf("seed user failed: %v", err)
	}

	token, user, err := svc.Login(ctx, dto.LoginRequest{Email: "someone@example.com", Password: "rightpassword"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" || user == nil {
		t.Fatal("expected a token and the user on success")
	}

	if _, _, err := svc.Login(ctx, dto.LoginRequest{Email: "someone@example.com", Password: "wrongpassword"}); err != apperror.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized for a bad password, got %v", err)
	}
	if _, _, err := svc.Login(ctx, dto.LoginRequest{Email: "nobody@example.com", Password: "whatever"}); err != apperror.ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized for an unknown email, got %v", err)
	}
}
