// Package ident generates the prefixed string identifiers used for every
// persisted entity, e.g. "BILL-4f1c...". External systems parse the prefix
// to tell entity kinds apart, so prefixes must never change.
package ident

import (
	"strings"

	"github.com/google/uuid"
)

// Prefix identifies the entity kind encoded in an identifier.
type Prefix string

const (
	PrefixDepartment       Prefix = "DEPT"
	PrefixDoctor           Prefix = "DOC"
	PrefixPatient          Prefix = "PAT"
	PrefixReceptionist     Prefix = "REC"
	PrefixPharmacist       Prefix = "PHA"
	PrefixAccount          Prefix = "USR"
	PrefixMedication       Prefix = "MED"
	PrefixPrescription     Prefix = "RX"
	PrefixPrescriptionItem Prefix = "RXI"
	PrefixAppointment      Prefix = "APT"
	PrefixBill             Prefix = "BILL"
	PrefixBillItem         Prefix = "ITEM"
)

// New returns a fresh identifier of the form "<PREFIX>-<uuid>".
func New(p Prefix) string {
	return string(p) + "-" + uuid.NewString()
}

// HasPrefix reports whether id was generated for the given entity kind.
func HasPrefix(id string, p Prefix) bool {
	return strings.HasPrefix(id, string(p)+"-")
}
