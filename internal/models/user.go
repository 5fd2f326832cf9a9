package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"clinic-booking-server/internal/booking"
)

// User represents a clinic user: a patient, doctor, receptionist or admin.
// The role doubles as the actor role for status-transition checks.
type User struct {
	BaseModel
	Email       string       `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password    string       `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	FirstName   string       `gorm:"size:100" json:"firstName"`
	LastName    string       `gorm:"size:100" json:"lastName"`
	Role        booking.Role `gorm:"size:20;default:'patient'" json:"role"`
	Specialty   string       `gorm:"size:100" json:"specialty,omitempty"` // doctors only
	DateOfBirth *time.Time   `json:"dateOfBirth,omitempty"`
	PhoneNumber string       `json:"phoneNumber,omitempty"`
	Address     string       `json:"address,omitempty"`

	// Relations (not always preloaded)
	RefreshTokens       []RefreshToken   `gorm:"foreignKey:UserID" json:"-"`
	DoctorAppointments  []Appointment    `gorm:"foreignKey:DoctorID" json:"-"`
	PatientAppointments []Appointment    `gorm:"foreignKey:PatientID" json:"-"`
	Schedules           []DoctorSchedule `gorm:"foreignKey:DoctorID" json:"-"`
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID          string       `json:"id"`
	Email       string       `json:"email"`
	FirstName   string       `json:"firstName"`
	LastName    string       `json:"lastName"`
	Role        booking.Role `json:"role"`
	Specialty   string       `json:"specialty,omitempty"`
	DateOfBirth *time.Time   `json:"dateOfBirth,omitempty"`
	PhoneNumber string       `json:"phoneNumber,omitempty"`
	Address     string       `json:"address,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// ValidRole reports whether r is one of the four clinic roles.
func ValidRole(r booking.Role) bool {
	switch r {
	case booking.RolePatient, booking.RoleDoctor, booking.RoleAdmin, booking.RoleReceptionist:
		return true
	}
	return false
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        u.Role,
		Specialty:   u.Specialty,
		DateOfBirth: u.DateOfBirth,
		PhoneNumber: u.PhoneNumber,
		Address:     u.Address,
		CreatedAt:   u.CreatedAt,
	}
}
