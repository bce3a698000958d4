// Package seed populates an empty installation with an administrator and a
// small demo roster so the API can be exercised straight away.
package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/medcore/hms/internal/domain/identity"
	"github.com/medcore/hms/internal/domain/pharmacy"
	"github.com/medcore/hms/internal/platform/auth"
	"github.com/medcore/hms/internal/platform/db"
)

type Options struct {
	AdminEmail    string
	AdminPassword string
}

type Seeder struct {
	accounts *auth.Service
	people   *identity.Service
	pharmacy *pharmacy.Service
	tx       db.Transactor
	opts     Options
	logger   zerolog.Logger
}

func New(accounts *auth.Service, people *identity.Service, pharm *pharmacy.Service, tx db.Transactor, opts Options, logger zerolog.Logger) *Seeder {
	return &Seeder{
		accounts: accounts,
		people:   people,
		pharmacy: pharm,
		tx:       tx,
		opts:     opts,
		logger:   logger.With().Str("component", "seed").Logger(),
	}
}

// Bootstrap seeds the database when no accounts exist yet and reports
// whether it did anything. Everything is written in one transaction.
func (s *Seeder) Bootstrap(ctx context.Context) (bool, error) {
	has, err := s.accounts.HasAccounts(ctx)
	if err != nil {
		return false, fmt.Errorf("count accounts: %w", err)
	}
	if has {
		s.logger.Debug().Msg("accounts present, skipping seed")
		return false, nil
	}

	password := s.opts.AdminPassword
	if password == "" {
		password = strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
		s.logger.Warn().Str("password", password).Msg("ADMIN_PASSWORD not set; generated one for seeded accounts")
	}

	if err := s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.populate(ctx, password)
	}); err != nil {
		return false, err
	}
	s.logger.Info().Str("admin", s.opts.AdminEmail).Msg("database seeded")
	return true, nil
}

func (s *Seeder) register(ctx context.Context, email, password string, role auth.Role, profileID string) error {
	_, err := s.accounts.Register(ctx, auth.RegisterRequest{
		Email:     email,
		Password:  password,
		Role:      role,
		ProfileID: profileID,
	})
	if err != nil {
		return fmt.Errorf("register %s: %w", email, err)
	}
	return nil
}

func (s *Seeder) populate(ctx context.Context, password string) error {
	if err := s.register(ctx, s.opts.AdminEmail, password, auth.RoleAdmin, ""); err != nil {
		return err
	}

	cardio := &identity.Department{Name: "Cardiology", Description: "Heart and vascular care"}
	general := &identity.Department{Name: "General Medicine", Description: "Primary and internal medicine"}
	for _, d := range []*identity.Department{cardio, general} {
		if err := s.people.CreateDepartment(ctx, d); err != nil {
			return fmt.Errorf("create department %s: %w", d.Name, err)
		}
	}

	doc := &identity.Doctor{FirstName: "Alice", LastName: "Morgan", Email: "doctor@hospital.local",
		Specialization: "Cardiology", DepartmentID: cardio.ID}
	if err := s.people.CreateDoctor(ctx, doc); err != nil {
		return fmt.Errorf("create doctor: %w", err)
	}
	if err := s.register(ctx, doc.Email, password, auth.RoleDoctor, doc.ID); err != nil {
		return err
	}

	staff := []struct {
		member *identity.Staff
		role   auth.Role
	}{
		{&identity.Staff{Kind: identity.StaffReceptionist, FirstName: "Ben", LastName: "Carter", Email: "reception@hospital.local"}, auth.RoleReceptionist},
		{&identity.Staff{Kind: identity.StaffPharmacist, FirstName: "Chloe", LastName: "Diaz", Email: "pharmacy@hospital.local"}, auth.RolePharmacist},
	}
	for _, st := range staff {
		if err := s.people.CreateStaff(ctx, st.member); err != nil {
			return fmt.Errorf("create %s: %w", st.member.Kind, err)
		}
		if err := s.register(ctx, st.member.Email, password, st.role, st.member.ID); err != nil {
			return err
		}
	}

	pat := &identity.Patient{FirstName: "Daniel", LastName: "Evans", Email: "patient@hospital.local", Gender: "MALE"}
	if err := s.people.CreatePatient(ctx, pat); err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	if err := s.register(ctx, pat.Email, password, auth.RolePatient, pat.ID); err != nil {
		return err
	}

	meds := []*pharmacy.Medication{
		{Name: "Amoxicillin 500mg", Manufacturer: "Generic Pharma", UnitPrice: decimal.RequireFromString("0.45"), StockQuantity: 500},
		{Name: "Atorvastatin 20mg", Manufacturer: "Generic Pharma", UnitPrice: decimal.RequireFromString("0.80"), StockQuantity: 300},
	}
	for _, m := range meds {
		if err := s.pharmacy.CreateMedication(ctx, m); err != nil {
			return fmt.Errorf("create medication %s: %w", m.Name, err)
		}
	}
	return nil
}
