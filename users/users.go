package users

import (
	"fmt"
	"net/mail"
	"strings"
)

// PlanType is the subscription tier reported by the backend.
type PlanType string

const (
	PlanFree PlanType = "free"
	PlanPro  PlanType = "pro"
)

// Credit costs charged by the backend for billable operations.
const (
	ReelCost    = 20
	AnalyzeCost = 1
)

// Profile is the cached snapshot of the signed-in account. It is advisory only:
// the backend owns the real balance and the cache is resynchronised on demand.
type Profile struct {
	ID        int64    `json:"id" yaml:"id"`                                     // Backend user ID
	Email     string   `json:"email" yaml:"email"`                               // Login email
	Credits   int      `json:"credits" yaml:"credits"`                           // Remaining credit balance
	Plan      PlanType `json:"plan,omitempty" yaml:"plan,omitempty"`             // Subscription tier
	CreatedAt string   `json:"created_at,omitempty" yaml:"created_at,omitempty"` // ISO-8601 as sent by the backend, kept verbatim
}

// PlanOrDefault returns the plan, treating a missing value as free like the backend does.
func (p Profile) PlanOrDefault() PlanType {
	if p.Plan == "" {
		return PlanFree
	}
	return p.Plan
}

// CanAfford reports whether the cached balance covers cost. The backend makes
// the final call; this only avoids obviously doomed requests.
func (p Profile) CanAfford(cost int) bool {
	return p.Credits >= cost
}

// ValidateCredentials performs the client-side checks the sign in and sign up
// forms apply before anything is sent.
func ValidateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("email %q is not a valid address", email)
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}
	return nil
}

// PasswordStrength is the label shown next to the sign up password field.
type PasswordStrength string

const (
	PasswordWeak   PasswordStrength = "weak"
	PasswordMedium PasswordStrength = "medium"
	PasswordStrong PasswordStrength = "strong"
)

const minRegistrationPasswordLength = 6

// RatePassword grades a password by length: 8+ strong, 6+ medium.
func RatePassword(password string) PasswordStrength {
	switch {
	case len(password) >= 8:
		return PasswordStrong
	case len(password) >= minRegistrationPasswordLength:
		return PasswordMedium
	default:
		return PasswordWeak
	}
}

// ValidateRegistration checks the sign up form: valid credentials, matching
// confirmation and the minimum password length.
func ValidateRegistration(email, password, confirmPassword string) error {
	if err := ValidateCredentials(email, password); err != nil {
		return err
	}
	if password != confirmPassword {
		return fmt.Errorf("passwords do not match")
	}
	if len(password) < minRegistrationPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", minRegistrationPasswordLength)
	}
	return nil
}
