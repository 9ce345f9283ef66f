package session

import (
	"fmt"

	"ClinicTalk/internal/helper"
	"ClinicTalk/internal/model"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Session is the viewer's identity, passed explicitly into every component
// instead of being read from ambient storage.
type Session struct {
	UserID string
	Role   Role
	Token  string
}

// FromToken builds a session from the bearer token's claims.
func FromToken(token string) (*Session, error) {
	claims, err := helper.ParseSessionClaims(token)
	if err != nil {
		return nil, err
	}

	role := Role(claims.Role)
	switch role {
	case RoleAdmin, RoleDoctor, RolePatient:
	default:
		return nil, fmt.Errorf("unknown role %q in token", claims.Role)
	}

	return &Session{
		UserID: claims.UserID,
		Role:   role,
		Token:  token,
	}, nil
}

// CounterpartKind reports which kind of contact populates the viewer's
// roster: patients for a doctor, doctors for everyone else.
func (s *Session) CounterpartKind() model.ContactKind {
	if s.Role == RoleDoctor {
		return model.ContactKindPatient
	}
	return model.ContactKindDoctor
}

// ConversationPair maps a contact onto the ordered (doctorID, patientID)
// pair the history endpoint is keyed by.
func (s *Session) ConversationPair(contactID string) (doctorID, patientID string) {
	if s.Role == RoleDoctor {
		return s.UserID, contactID
	}
	return contactID, s.UserID
}
