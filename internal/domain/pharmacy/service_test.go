package pharmacy

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/medcore/hms/internal/platform/db"
	"github.com/medcore/hms/pkg/ident"
	"github.com/medcore/hms/pkg/patch"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seedMedication(t *testing.T, svc *Service, name, price string, stock int) *Medication {
	t.Helper()
	m := &Medication{Name: name, UnitPrice: dec(price), StockQuantity: stock}
	if err := svc.CreateMedication(context.Background(), m); err != nil {
		t.Fatalf("create medication: %v", err)
	}
	return m
}

func seedPrescription(t *testing.T, svc *Service, items ...*PrescriptionItem) *Prescription {
	t.Helper()
	p := &Prescription{PatientID: "PAT-1", DoctorID: "DOC-1"}
	if err := svc.CreatePrescription(context.Background(), p, items); err != nil {
		t.Fatalf("create prescription: %v", err)
	}
	return p
}

func TestCreateMedication(t *testing.T) {
	svc := newTestService()
	m := seedMedication(t, svc, "Amoxicillin", "12.50", 100)
	if !ident.HasPrefix(m.ID, ident.PrefixMedication) {
		t.Errorf("expected MED id, got %q", m.ID)
	}

	tests := []struct {
		name string
		med  Medication
	}{
		{"blank name", Medication{Name: " "}},
		{"negative price", Medication{Name: "x", UnitPrice: dec("-1")}},
		{"negative stock", Medication{Name: "x", StockQuantity: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.med
			if err := svc.CreateMedication(context.Background(), &m); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestUpdateMedication_Price(t *testing.T) {
	svc := newTestService()
	m := seedMedication(t, svc, "Ibuprofen", "3.00", 10)
	got, err := svc.UpdateMedication(context.Background(), m.ID, MedicationPatch{UnitPrice: patch.Some(dec("3.25"))})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.UnitPrice.Equal(dec("3.25")) || got.StockQuantity != 10 {
		t.Errorf("unexpected medication: %+v", got)
	}
}

func TestCreatePrescription(t *testing.T) {
	svc := newTestService()
	m := seedMedication(t, svc, "Amoxicillin", "12.50", 100)
	p := seedPrescription(t, svc, &PrescriptionItem{MedicationID: m.ID, Quantity: 2, Dosage: "500mg"})

	if !ident.HasPrefix(p.ID, ident.PrefixPrescription) {
		t.Errorf("expected RX id, got %q", p.ID)
	}
	if p.Status != PrescriptionPending {
		t.Errorf("expected PENDING, got %s", p.Status)
	}
	got, err := svc.GetPrescription(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].PrescriptionID != p.ID {
		t.Errorf("unexpected items: %+v", got.Items)
	}
}

func TestCreatePrescription_Validation(t *testing.T) {
	svc := newTestService()
	m := seedMedication(t, svc, "Amoxicillin", "12.50", 100)
	ctx := context.Background()

	if err := svc.CreatePrescription(ctx, &Prescription{DoctorID: "DOC-1"}, []*PrescriptionItem{{MedicationID: m.ID, Quantity: 1}}); err == nil {
		t.Error("expected error for missing patient")
	}
	if err := svc.CreatePrescription(ctx, &Prescription{PatientID: "PAT-1", DoctorID: "DOC-1"}, nil); err == nil {
		t.Error("expected error for no items")
	}
	if err := svc.CreatePrescription(ctx, &Prescription{PatientID: "PAT-1", DoctorID: "DOC-1"},
		[]*PrescriptionItem{{MedicationID: m.ID, Quantity: 0}}); err == nil {
		t.Error("expected error for zero quantity")
	}
	err := svc.CreatePrescription(ctx, &Prescription{PatientID: "PAT-1", DoctorID: "DOC-1"},
		[]*PrescriptionItem{{MedicationID: "MED-missing", Quantity: 1}})
	if !db.IsNotFound(err) {
		t.Errorf("expected not found for unknown medication, got %v", err)
	}
}

func TestCreatePrescription_RollsBackOnItemFailure(t *testing.T) {
	svc, s := newTestServiceWithStore()
	m := seedMedication(t, svc, "Amoxicillin", "12.50", 100)
	s.failItemCreate = true

	err := svc.CreatePrescription(context.Background(), &Prescription{PatientID: "PAT-1", DoctorID: "DOC-1"},
		[]*PrescriptionItem{{MedicationID: m.ID, Quantity: 1}})
	if !errors.Is(err, errItemStore) {
		t.Fatalf("expected item store error, got %v", err)
	}
	if len(s.rxs) != 0 || len(s.items) != 0 {
		t.Errorf("expected nothing stored, got %d prescriptions, %d items", len(s.rxs), len(s.items))
	}
}

func TestDispense_OnceAndStockUntouched(t *testing.T) {
	svc, s := newTestServiceWithStore()
	m := seedMedication(t, svc, "Amoxicillin", "12.50", 100)
	p := seedPrescription(t, svc, &PrescriptionItem{MedicationID: m.ID, Quantity: 30})
	ctx := context.Background()

	got, err := svc.Dispense(ctx, p.ID)
	if err != nil {
		t.Fatalf("dispense: %v", err)
	}
	if got.Status != PrescriptionDispensed {
		t.Errorf("expected DISPENSED, got %s", got.Status)
	}
	if s.meds[m.ID].StockQuantity != 100 {
		t.Errorf("stock changed to %d", s.meds[m.ID].StockQuantity)
	}

	if _, err := svc.Dispense(ctx, p.ID); !errors.Is(err, ErrAlreadyDispensed) {
		t.Errorf("expected ErrAlreadyDispensed, got %v", err)
	}
}

func TestDispense_DeletedMedicationNotChecked(t *testing.T) {
	svc := newTestService()
	m := seedMedication(t, svc, "Amoxicillin", "12.50", 100)
	p := seedPrescription(t, svc, &PrescriptionItem{MedicationID: m.ID, Quantity: 1})
	ctx := context.Background()
	if err := svc.DeleteMedication(ctx, m.ID); err != nil {
		t.Fatalf("delete medication: %v", err)
	}
	if _, err := svc.Dispense(ctx, p.ID); err != nil {
		t.Fatalf("dispense should not check medications: %v", err)
	}
}

func TestDispense_NotFound(t *testing.T) {
	svc := newTestService()
	if _, err := svc.Dispense(context.Background(), "RX-missing"); !db.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestChargesForPrescription(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	a := seedMedication(t, svc, "Amoxicillin", "12.50", 100)
	b := seedMedication(t, svc, "Ibuprofen", "0.35", 100)
	p := seedPrescription(t, svc,
		&PrescriptionItem{MedicationID: a.ID, Quantity: 2},
		&PrescriptionItem{MedicationID: b.ID, Quantity: 3},
	)

	patientID, charges, err := svc.ChargesForPrescription(ctx, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if patientID != "PAT-1" {
		t.Errorf("expected PAT-1, got %q", patientID)
	}
	if len(charges) != 2 {
		t.Fatalf("expected 2 charges, got %d", len(charges))
	}
	sum := decimal.Zero
	for _, c := range charges {
		sum = sum.Add(c.Amount)
	}
	if !sum.Equal(dec("26.05")) {
		t.Errorf("expected 26.05, got %s", sum)
	}

	// Price changes apply to later billing runs
	svc.UpdateMedication(ctx, b.ID, MedicationPatch{UnitPrice: patch.Some(dec("0.40"))})
	svc.DeleteMedication(ctx, a.ID)
	_, charges, err = svc.ChargesForPrescription(ctx, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(charges) != 1 || !charges[0].Amount.Equal(dec("1.20")) || charges[0].Description != "Ibuprofen" {
		t.Errorf("unexpected charges after changes: %+v", charges)
	}
}

func TestListPrescriptionsByPatient(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	m := seedMedication(t, svc, "Amoxicillin", "12.50", 100)
	seedPrescription(t, svc, &PrescriptionItem{MedicationID: m.ID, Quantity: 1})
	other := &Prescription{PatientID: "PAT-2", DoctorID: "DOC-1"}
	svc.CreatePrescription(ctx, other, []*PrescriptionItem{{MedicationID: m.ID, Quantity: 1}})

	items, total, err := svc.ListPrescriptionsByPatient(ctx, "PAT-2", 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || items[0].ID != other.ID {
		t.Errorf("expected only PAT-2's prescription, got %d", total)
	}
}
