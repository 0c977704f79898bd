package domain

import (
	"strings"
	"time"
)

// ============================================================
// Customer
// ============================================================

// Customer belongs to exactly one owning identity (UserID). It is the root
// of every ownership chain.
type Customer struct {
	ID         string
	UserID     string
	Name       string
	NationalID string
	BirthDate  time.Time
	BirthPlace string
	CreatedAt  time.Time
}

// NewCustomer validates registration input.
func NewCustomer(id, userID, name, nationalID string, birthDate time.Time, birthPlace string, now time.Time) (*Customer, error) {
	name = strings.TrimSpace(name)
	nationalID = strings.TrimSpace(nationalID)
	switch {
	case name == "":
		return nil, &ErrValidation{Field: "name", Message: "required"}
	case nationalID == "":
		return nil, &ErrValidation{Field: "national_id", Message: "required"}
	case birthDate.IsZero() || birthDate.After(now):
		return nil, &ErrValidation{Field: "birth_date", Message: "must be a past date"}
	}
	return &Customer{
		ID:         id,
		UserID:     userID,
		Name:       name,
		NationalID: nationalID,
		BirthDate:  birthDate,
		BirthPlace: strings.TrimSpace(birthPlace),
		CreatedAt:  now,
	}, nil
}

// OwnedBy reports whether userID is the customer's owning identity.
func (c *Customer) OwnedBy(userID string) bool {
	return c.UserID == userID
}
