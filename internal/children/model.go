package children

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Gender values accepted for a child.
const (
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"
)

var (
	// ErrNotFound is returned when no child matches the lookup.
	ErrNotFound = errors.New("child not found")
	// ErrNotOwner is returned when a parent acts on another parent's child.
	ErrNotOwner = errors.New("you can access lunches only for your own children")
	// ErrInvalidChild rejects incomplete or out-of-range child details.
	ErrInvalidChild = errors.New("invalid child details")
)

// Child is a pupil registered by a parent.
type Child struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parentId"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	School    string    `json:"school"`
	Grade     int       `json:"grade"`
	Gender    string    `json:"gender,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// FullName joins first and last name.
func (c Child) FullName() string {
	return c.FirstName + " " + c.LastName
}

// Details is the caller-supplied part of a child record.
type Details struct {
	FirstName string
	LastName  string
	School    string
	Grade     int
	Gender    string
}

func (d Details) normalize() (Details, error) {
	d.FirstName = strings.TrimSpace(d.FirstName)
	d.LastName = strings.TrimSpace(d.LastName)
	d.School = strings.TrimSpace(d.School)
	d.Gender = strings.ToUpper(strings.TrimSpace(d.Gender))
	switch {
	case d.FirstName == "" || d.LastName == "":
		return Details{}, fmt.Errorf("%w: first and last name are required", ErrInvalidChild)
	case d.School == "":
		return Details{}, fmt.Errorf("%w: school is required", ErrInvalidChild)
	}
	if err := validGrade(d.Grade); err != nil {
		return Details{}, err
	}
	if d.Gender != "" && d.Gender != GenderMale && d.Gender != GenderFemale {
		return Details{}, fmt.Errorf("%w: gender must be MALE or FEMALE", ErrInvalidChild)
	}
	return d, nil
}

func validGrade(grade int) error {
	if grade < 1 || grade > 12 {
		return fmt.Errorf("%w: grade must be between 1 and 12", ErrInvalidChild)
	}
	return nil
}
