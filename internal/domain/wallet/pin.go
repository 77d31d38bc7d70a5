package wallet

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ValidatePin checks the PIN is 4 to 6 ASCII digits.
func ValidatePin(pin string) error {
	if len(pin) < 4 || len(pin) > 6 {
		return ErrInvalidPinFormat
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return ErrInvalidPinFormat
		}
	}
	return nil
}

// HashPin returns the bcrypt hash stored for pin.
func HashPin(pin string) (string, error) {
	if err := ValidatePin(pin); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// HasPin reports whether a PIN has been set.
func (w *Wallet) HasPin() bool {
	return w.PinHash != ""
}

// SetPin replaces the PIN hash and clears any lockout.
func (w *Wallet) SetPin(hash string) {
	w.PinHash = hash
	w.PinAttempts = 0
	w.PinLockedUntil = nil
}

// CheckPinLock fails while a lockout is in force.
func (w *Wallet) CheckPinLock(now time.Time) error {
	if w.PinLockedUntil != nil && now.Before(*w.PinLockedUntil) {
		return ErrPinLocked{Until: *w.PinLockedUntil}
	}
	return nil
}

// VerifyPin checks pin against the stored hash and updates the attempt state.
// Reaching maxAttempts failures locks the wallet for lockDuration. The caller
// must persist the wallet whatever the outcome.
func (w *Wallet) VerifyPin(pin string, now time.Time, maxAttempts int, lockDuration time.Duration) error {
	if err := w.CheckPinLock(now); err != nil {
		return err
	}
	if !w.HasPin() {
		return ErrPinNotSet
	}
	if w.PinLockedUntil != nil {
		// lock expired
		w.PinLockedUntil = nil
		w.PinAttempts = 0
	}

	err := bcrypt.CompareHashAndPassword([]byte(w.PinHash), []byte(pin))
	if err == nil {
		w.PinAttempts = 0
		return nil
	}
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return err
	}

	w.PinAttempts++
	if w.PinAttempts >= maxAttempts {
		until := now.Add(lockDuration)
		w.PinLockedUntil = &until
		return ErrPinLocked{Until: until}
	}
	return ErrPinMismatch
}
