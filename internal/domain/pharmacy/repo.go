package pharmacy

import "context"

type MedicationRepository interface {
	Create(ctx context.Context, m *Medication) error
	GetByID(ctx context.Context, id string) (*Medication, error)
	Update(ctx context.Context, m *Medication) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*Medication, int, error)
}

type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id string) (*Prescription, error)
	// SetStatus moves a prescription from one status to another and reports
	// whether the row was in the expected status.
	SetStatus(ctx context.Context, id string, from, to PrescriptionStatus) (bool, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*Prescription, int, error)
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*Prescription, int, error)
}

type PrescriptionItemRepository interface {
	Create(ctx context.Context, it *PrescriptionItem) error
	ListByPrescription(ctx context.Context, prescriptionID string) ([]*PrescriptionItem, error)
}
