package app

import (
	"context"
	"errors"
	"testing"

	"financial_digest/internal/domain/advisor"
)

const adminID int64 = 42

func TestAdminServiceAddAdvisor(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   int64
		id      string
		email   string
		adName  string
		seed    []*advisor.Advisor
		wantErr error
	}{
		{name: "creates", actor: adminID, id: "A001", email: "john@firm.example", adName: "John Smith"},
		{name: "not admin", actor: 7, id: "A001", email: "john@firm.example", adName: "John Smith", wantErr: ErrAdminNotAuthorized},
		{name: "bad email", actor: adminID, id: "A001", email: "john", adName: "John Smith", wantErr: ErrInvalidAdvisor},
		{name: "missing name", actor: adminID, id: "A001", email: "john@firm.example", adName: " ", wantErr: ErrInvalidAdvisor},
		{
			name: "already active", actor: adminID, id: "A001", email: "john@firm.example", adName: "John Smith",
			seed:    []*advisor.Advisor{{ID: "A001", Name: "John", Email: "john@firm.example", IsActive: true}},
			wantErr: ErrAdvisorAlreadyExists,
		},
		{
			name: "duplicate email", actor: adminID, id: "A002", email: "john@firm.example", adName: "Other",
			seed:    []*advisor.Advisor{{ID: "A001", Name: "John", Email: "john@firm.example", IsActive: true}},
			wantErr: advisor.ErrDuplicateEmail,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeAdvisorRepo(tt.seed...)
			svc := NewAdminService(repo, adminID)

			got, err := svc.AddAdvisor(ctx, tt.actor, tt.id, tt.email, tt.adName)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("AddAdvisor() failed: %v", err)
			}
			if !got.IsActive || got.Email != tt.email {
				t.Errorf("unexpected advisor %+v", got)
			}
			if _, err := repo.GetByID(ctx, tt.id); err != nil {
				t.Errorf("advisor not stored: %v", err)
			}
		})
	}
}

func TestAdminServiceReactivates(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAdvisorRepo(&advisor.Advisor{ID: "A001", Name: "Old", Email: "old@firm.example", IsActive: false})
	svc := NewAdminService(repo, adminID)

	got, err := svc.AddAdvisor(ctx, adminID, "A001", "new@firm.example", "John Smith")
	if err != nil {
		t.Fatalf("AddAdvisor() failed: %v", err)
	}
	if !got.IsActive || got.Name != "John Smith" || got.Email != "new@firm.example" {
		t.Errorf("advisor not reactivated: %+v", got)
	}
}

func TestAdminServiceRemoveAdvisor(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAdvisorRepo(&advisor.Advisor{ID: "A001", Name: "John", Email: "john@firm.example", IsActive: true})
	svc := NewAdminService(repo, adminID)

	if _, err := svc.RemoveAdvisor(ctx, 7, "A001"); !errors.Is(err, ErrAdminNotAuthorized) {
		t.Errorf("expected ErrAdminNotAuthorized, got %v", err)
	}
	removed, err := svc.RemoveAdvisor(ctx, adminID, "A001")
	if err != nil {
		t.Fatalf("RemoveAdvisor() failed: %v", err)
	}
	if removed.IsActive {
		t.Errorf("advisor still active")
	}
	if _, err := svc.RemoveAdvisor(ctx, adminID, "A001"); !errors.Is(err, ErrAdvisorAlreadyInactive) {
		t.Errorf("expected ErrAdvisorAlreadyInactive, got %v", err)
	}
	if _, err := svc.RemoveAdvisor(ctx, adminID, "A404"); !errors.Is(err, advisor.ErrAdvisorNotFound) {
		t.Errorf("expected ErrAdvisorNotFound, got %v", err)
	}

	active, err := svc.ListAdvisors(ctx, adminID, false)
	if err != nil || len(active) != 0 {
		t.Errorf("expected no active advisors, got %d (%v)", len(active), err)
	}
	all, err := svc.ListAdvisors(ctx, adminID, true)
	if err != nil || len(all) != 1 {
		t.Errorf("expected one advisor in total, got %d (%v)", len(all), err)
	}
}

func TestAdminServiceLinkTelegram(t *testing.T) {
	ctx := context.Background()
	repo := newFakeAdvisorRepo(&advisor.Advisor{ID: "A001", Name: "John", Email: "john@firm.example", IsActive: true})
	svc := NewAdminService(repo, adminID)

	if _, err := svc.LinkTelegram(ctx, 7, "A001", 555); !errors.Is(err, ErrAdminNotAuthorized) {
		t.Fatalf("expected authorization error, got %v", err)
	}
	if _, err := svc.LinkTelegram(ctx, adminID, "A404", 555); !errors.Is(err, advisor.ErrAdvisorNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	got, err := svc.LinkTelegram(ctx, adminID, "A001", 555)
	if err != nil {
		t.Fatalf("LinkTelegram() failed: %v", err)
	}
	stored, _ := repo.GetByID(ctx, "A001")
	if !got.TelegramID.Valid || stored.TelegramID.Int64 != 555 {
		t.Errorf("telegram id not stored: %+v", stored)
	}

	if _, err := svc.LinkTelegram(ctx, adminID, "A001", 0); err != nil {
		t.Fatalf("unlink failed: %v", err)
	}
	stored, _ = repo.GetByID(ctx, "A001")
	if stored.TelegramID.Valid {
		t.Errorf("telegram id should be cleared: %+v", stored)
	}
}
