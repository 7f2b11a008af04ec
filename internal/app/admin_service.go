package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"financial_digest/internal/domain/advisor"
)

// Application-level errors for the admin service
var ErrAdminNotAuthorized = errors.New("performing user is not authorized as an admin")
var ErrAdvisorAlreadyExists = errors.New("advisor with this ID already exists")
var ErrAdvisorAlreadyInactive = errors.New("advisor is already inactive")
var ErrInvalidAdvisor = errors.New("advisor id, name and a valid email are required")

type AdminService struct {
	advisorRepo     advisor.Repository
	adminTelegramID int64
}

func NewAdminService(ar advisor.Repository, adminID int64) *AdminService {
	return &AdminService{
		advisorRepo:     ar,
		adminTelegramID: adminID,
	}
}

// IsAdmin reports whether the Telegram user may run admin commands.
func (s *AdminService) IsAdmin(telegramID int64) bool {
	return s.adminTelegramID != 0 && telegramID == s.adminTelegramID
}

// AddAdvisor registers an advisor, or reactivates one that was removed.
func (s *AdminService) AddAdvisor(ctx context.Context, performingAdminID int64, id, email, name string) (*advisor.Advisor, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}
	id, email, name = strings.TrimSpace(id), strings.TrimSpace(email), strings.TrimSpace(name)
	if id == "" || name == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidAdvisor
	}

	existing, err := s.advisorRepo.GetByID(ctx, id)
	if err == nil {
		if existing.IsActive {
			return nil, ErrAdvisorAlreadyExists
		}
		existing.Name, existing.Email, existing.IsActive = name, email, true
		if err := s.advisorRepo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to reactivate advisor in repository: %w", err)
		}
		return existing, nil
	}
	if !errors.Is(err, advisor.ErrAdvisorNotFound) {
		return nil, fmt.Errorf("failed to check existing advisor: %w", err)
	}

	newAdvisor := &advisor.Advisor{
		ID:         id,
		Name:       name,
		Email:      email,
		TelegramID: sql.NullInt64{},
		IsActive:   true,
	}
	if err := s.advisorRepo.Create(ctx, newAdvisor); err != nil {
		if errors.Is(err, advisor.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create advisor in repository: %w", err)
	}
	return newAdvisor, nil
}

// RemoveAdvisor deactivates an advisor. Inactive advisors receive no digest.
func (s *AdminService) RemoveAdvisor(ctx context.Context, performingAdminID int64, id string) (*advisor.Advisor, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}

	target, err := s.advisorRepo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, advisor.ErrAdvisorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get advisor for removal: %w", err)
	}

	if !target.IsActive {
		return target, ErrAdvisorAlreadyInactive
	}

	target.IsActive = false
	if err := s.advisorRepo.Update(ctx, target); err != nil {
		return nil, fmt.Errorf("failed to update advisor to inactive in repository: %w", err)
	}
	return target, nil
}

// LinkTelegram stores the chat that receives the advisor's urgent notices.
// A zero chatID removes the link.
func (s *AdminService) LinkTelegram(ctx context.Context, performingAdminID int64, id string, chatID int64) (*advisor.Advisor, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}

	target, err := s.advisorRepo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, advisor.ErrAdvisorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get advisor for telegram link: %w", err)
	}

	target.TelegramID = sql.NullInt64{Int64: chatID, Valid: chatID != 0}
	if err := s.advisorRepo.Update(ctx, target); err != nil {
		return nil, fmt.Errorf("failed to update advisor telegram link: %w", err)
	}
	return target, nil
}

// ListAdvisors returns active advisors, or every advisor when all is set.
func (s *AdminService) ListAdvisors(ctx context.Context, performingAdminID int64, all bool) ([]*advisor.Advisor, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}
	var (
		advisors []*advisor.Advisor
		err      error
	)
	if all {
		advisors, err = s.advisorRepo.ListAll(ctx)
	} else {
		advisors, err = s.advisorRepo.ListActive(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list advisors: %w", err)
	}
	return advisors, nil
}
