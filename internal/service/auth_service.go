package service

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"ratestuff.app/backend/internal/dto"
	"ratestuff.app/backend/internal/model"
	"ratestuff.app/backend/internal/repository"
	"ratestuff.app/backend/pkg/apperror"
)

type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req dto.LoginRequest) (string, *model.User, error)
}

type authService struct {
	userRepo  repository.UserRepository
	brandRepo repository.BrandRepository
	secret    string
}

func NewAuthService(userRepo repository.UserRepository, brandRepo repository.BrandRepository) AuthService {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "12345"
	}
	return &authService{
		userRepo:  userRepo,
		brandRepo: brandRepo,
		secret:    secret,
	}
}

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (*model.User, error) {
	if _, err := s.userRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, apperror.New(409, "email already registered", apperror.ErrDuplicate)
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	if _, err := s.userRepo.FindByUsername(ctx, req.Username); err == nil {
		return nil, apperror.New(409, "username already taken", apperror.ErrDuplicate)
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	slug := req.BrandSlug
	if req.Brand {
		if slug == "" {
			slug = strings.ToLower(req.Username)
		}
		if _, err := s.brandRepo.FindBySlug(ctx, slug); err == nil {
			return nil, apperror.New(409, "brand slug already taken", apperror.ErrDuplicate)
		} else if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	kind := model.UserKindUser
	if req.Brand {
		kind = model.UserKindBrand
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Kind:         kind,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	// Brand users also get a slug record so they can be @-mentioned
	if req.Brand {
		brand := &model.BrandAccount{
			Slug:  slug,
			Name:  req.Username,
			Email: req.Email,
		}
		if err := s.brandRepo.Create(ctx, brand); err != nil {
			return nil, err
		}
	}

	return user, nil
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (string, *model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil, apperror.ErrUnauthorized
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return "", nil, apperror.ErrUnauthorized
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(72 * time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.secret))
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}
