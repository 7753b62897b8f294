package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kystlys/stay-engine/internal/auth"
)

type Service interface {
	Create(ctx context.Context, email, password, displayName string) (*Member, error)
	Login(ctx context.Context, email, password string) (*Member, error)
	GetByID(ctx context.Context, id string) (*Member, error)
	// EnsureAdmin creates the bootstrap account when it does not exist yet.
	EnsureAdmin(ctx context.Context, email, password string) error
}

type service struct {
	repo   Repository
	hasher auth.PasswordHasher
	logger *zap.Logger

	minPasswordLength int
}

func NewService(repo Repository, hasher auth.PasswordHasher, logger *zap.Logger) Service {
	return &service{
		repo:              repo,
		hasher:            hasher,
		logger:            logger,
		minPasswordLength: 8,
	}
}

func (s *service) Create(ctx context.Context, email, password, displayName string) (*Member, error) {
	cleanEmail := normalizeEmail(email)
	if cleanEmail == "" {
		return nil, ErrEmailRequired
	}
	if len(password) < s.minPasswordLength {
		return nil, ErrPasswordTooShort.WithDetails(map[string]any{"min_length": s.minPasswordLength})
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	m := &Member{
		Email:        cleanEmail,
		PasswordHash: hash,
		IsActive:     true,
	}
	if d := strings.TrimSpace(displayName); d != "" {
		m.DisplayName = &d
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*Member, error) {
	cleanEmail := normalizeEmail(email)
	if cleanEmail == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidCredentials
	}

	m, err := s.repo.GetByEmail(ctx, cleanEmail)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !m.IsActive {
		return nil, ErrInactive
	}
	if err := s.hasher.Compare(m.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	// Best effort from here on
	if s.hasher.NeedsRehash(m.PasswordHash) {
		s.rehash(ctx, m, password)
	}
	now := time.Now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, m.ID, now); err != nil {
		s.logger.Warn("update last login failed", zap.String("staff_id", m.ID), zap.Error(err))
	} else {
		m.LastLoginAt = &now
	}
	return m, nil
}

func (s *service) rehash(ctx context.Context, m *Member, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.repo.UpdatePasswordHash(ctx, m.ID, hash)
	}
	if err != nil {
		s.logger.Warn("password rehash failed", zap.String("staff_id", m.ID), zap.Error(err))
		return
	}
	m.PasswordHash = hash
}

func (s *service) GetByID(ctx context.Context, id string) (*Member, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	_, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	m, err := s.Create(ctx, email, password, "Administrator")
	if errors.Is(err, ErrEmailAlreadyUsed) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create admin account failed: %w", err)
	}
	s.logger.Info("admin account created", zap.String("staff_id", m.ID), zap.String("email", m.Email))
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
