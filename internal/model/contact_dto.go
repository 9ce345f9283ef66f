package model

type ContactKind string

const (
	ContactKindDoctor  ContactKind = "doctor"
	ContactKindPatient ContactKind = "patient"
)

// Contact is the counterpart party a viewer can open a conversation with.
// The Kind tag replaces the duck-typed roster objects the backend returns.
type Contact struct {
	ID   string      `json:"id"`
	Kind ContactKind `json:"kind"`

	DisplayName string `json:"name"`

	// Role-dependent subtitle: a doctor's specialization or a patient's
	// treatment name.
	Label string `json:"label,omitempty"`

	Email string `json:"email,omitempty"`
}

type DoctorResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
	Email          string `json:"email"`
}

func (d DoctorResponse) ToContact() Contact {
	return Contact{
		ID:          d.ID,
		Kind:        ContactKindDoctor,
		DisplayName: d.Name,
		Label:       d.Specialization,
		Email:       d.Email,
	}
}

type PatientResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	TreatmentName string `json:"treatment_name"`
	Email         string `json:"email"`
}

func (p PatientResponse) ToContact() Contact {
	return Contact{
		ID:          p.ID,
		Kind:        ContactKindPatient,
		DisplayName: p.Name,
		Label:       p.TreatmentName,
		Email:       p.Email,
	}
}
