package pharmacy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/medcore/hms/internal/platform/db"
	"github.com/medcore/hms/pkg/ident"
)

// ErrAlreadyDispensed is returned when dispensing a prescription twice.
var ErrAlreadyDispensed = errors.New("prescription already dispensed")

type Service struct {
	meds   MedicationRepository
	rxs    PrescriptionRepository
	items  PrescriptionItemRepository
	tx     db.Transactor
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(meds MedicationRepository, rxs PrescriptionRepository, items PrescriptionItemRepository, tx db.Transactor, logger zerolog.Logger) *Service {
	return &Service{
		meds:   meds,
		rxs:    rxs,
		items:  items,
		tx:     tx,
		logger: logger.With().Str("component", "pharmacy").Logger(),
		now:    time.Now,
	}
}

// -- Medications --

func validateMedication(m *Medication) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if m.UnitPrice.IsNegative() {
		return fmt.Errorf("unit_price must not be negative")
	}
	if m.StockQuantity < 0 {
		return fmt.Errorf("stock_quantity must not be negative")
	}
	return nil
}

func (s *Service) CreateMedication(ctx context.Context, m *Medication) error {
	if err := validateMedication(m); err != nil {
		return err
	}
	m.ID = ident.New(ident.PrefixMedication)
	return s.meds.Create(ctx, m)
}

func (s *Service) GetMedication(ctx context.Context, id string) (*Medication, error) {
	return s.meds.GetByID(ctx, id)
}

func (s *Service) UpdateMedication(ctx context.Context, id string, p MedicationPatch) (*Medication, error) {
	m, err := s.meds.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.apply(m)
	if err := validateMedication(m); err != nil {
		return nil, err
	}
	if err := s.meds.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteMedication removes the medication. Prescription lines that refer to
// it are kept and simply stop producing charges.
func (s *Service) DeleteMedication(ctx context.Context, id string) error {
	return s.meds.Delete(ctx, id)
}

func (s *Service) ListMedications(ctx context.Context, limit, offset int) ([]*Medication, int, error) {
	return s.meds.List(ctx, limit, offset)
}

// -- Prescriptions --

// CreatePrescription stores a pending prescription and its lines in one
// transaction. Every line must name an existing medication at issue time.
func (s *Service) CreatePrescription(ctx context.Context, p *Prescription, items []*PrescriptionItem) error {
	if strings.TrimSpace(p.PatientID) == "" {
		return fmt.Errorf("patient_id is required")
	}
	if strings.TrimSpace(p.DoctorID) == "" {
		return fmt.Errorf("doctor_id is required")
	}
	if len(items) == 0 {
		return fmt.Errorf("at least one item is required")
	}
	for i, it := range items {
		if it.Quantity < 1 {
			return fmt.Errorf("item %d: quantity must be at least 1", i)
		}
		if _, err := s.meds.GetByID(ctx, it.MedicationID); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}

	p.ID = ident.New(ident.PrefixPrescription)
	p.IssuedAt = s.now().UTC()
	p.Status = PrescriptionPending
	for _, it := range items {
		it.ID = ident.New(ident.PrefixPrescriptionItem)
		it.PrescriptionID = p.ID
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.rxs.Create(ctx, p); err != nil {
			return err
		}
		for _, it := range items {
			if err := s.items.Create(ctx, it); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.Items = items
	return nil
}

// GetPrescription returns the prescription with its lines.
func (s *Service) GetPrescription(ctx context.Context, id string) (*Prescription, error) {
	p, err := s.rxs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Items, err = s.items.ListByPrescription(ctx, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeletePrescription(ctx context.Context, id string) error {
	return s.rxs.Delete(ctx, id)
}

func (s *Service) ListPrescriptions(ctx context.Context, limit, offset int) ([]*Prescription, int, error) {
	return s.rxs.List(ctx, limit, offset)
}

func (s *Service) ListPrescriptionsByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Prescription, int, error) {
	return s.rxs.ListByPatient(ctx, patientID, limit, offset)
}

// Dispense marks a pending prescription as dispensed. Stock levels are not
// adjusted and medication references are not rechecked.
func (s *Service) Dispense(ctx context.Context, id string) (*Prescription, error) {
	p, err := s.rxs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == PrescriptionDispensed {
		return nil, fmt.Errorf("%s: %w", id, ErrAlreadyDispensed)
	}
	ok, err := s.rxs.SetStatus(ctx, id, PrescriptionPending, PrescriptionDispensed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrAlreadyDispensed)
	}
	p.Status = PrescriptionDispensed
	s.logger.Info().Str("prescription_id", id).Str("patient_id", p.PatientID).Msg("prescription dispensed")
	return p, nil
}

// ChargesForPrescription prices every line at the medication's current unit
// price. Lines whose medication no longer exists are skipped.
func (s *Service) ChargesForPrescription(ctx context.Context, id string) (string, []LineCharge, error) {
	p, err := s.GetPrescription(ctx, id)
	if err != nil {
		return "", nil, err
	}
	charges := make([]LineCharge, 0, len(p.Items))
	for _, it := range p.Items {
		m, err := s.meds.GetByID(ctx, it.MedicationID)
		if db.IsNotFound(err) {
			s.logger.Warn().Str("prescription_id", id).Str("medication_id", it.MedicationID).
				Msg("skipping line for deleted medication")
			continue
		}
		if err != nil {
			return "", nil, err
		}
		charges = append(charges, LineCharge{
			MedicationID: m.ID,
			Description:  m.Name,
			Quantity:     it.Quantity,
			Amount:       m.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}
	return p.PatientID, charges, nil
}
