package wallet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wallet-ledger/internal/domain/shared"
)

func TestValidatePin(t *testing.T) {
	tests := []struct {
		pin   string
		valid bool
	}{
		{"1234", true},
		{"123456", true},
		{"123", false},
		{"1234567", false},
		{"12a4", false},
		{"", false},
		{"١٢٣٤", false},
	}

	for _, tt := range tests {
		t.Run(tt.pin, func(t *testing.T) {
			err := ValidatePin(tt.pin)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, shared.ErrInvalidArgument)
			}
		})
	}
}

func TestWallet_VerifyPin(t *testing.T) {
	const maxAttempts = 5
	lockFor := 30 * time.Minute

	withPin := func(t *testing.T) *Wallet {
		w := newTestWallet(t, "200")
		hash, err := HashPin("4821")
		require.NoError(t, err)
		w.SetPin(hash)
		return w
	}

	t.Run("CorrectPin", func(t *testing.T) {
		w := withPin(t)
		w.PinAttempts = 3
		assert.NoError(t, w.VerifyPin("4821", time.Now(), maxAttempts, lockFor))
		assert.Equal(t, 0, w.PinAttempts)
	})

	t.Run("HashIsSalted", func(t *testing.T) {
		a, err := HashPin("4821")
		require.NoError(t, err)
		b, err := HashPin("4821")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
		assert.NotContains(t, a, "4821")
	})

	t.Run("NoPinSet", func(t *testing.T) {
		w := newTestWallet(t, "0")
		assert.ErrorIs(t, w.VerifyPin("4821", time.Now(), maxAttempts, lockFor), ErrPinNotSet)
	})

	t.Run("LocksAfterMaxAttempts", func(t *testing.T) {
		w := withPin(t)
		now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

		for i := 1; i < maxAttempts; i++ {
			err := w.VerifyPin("0000", now, maxAttempts, lockFor)
			assert.ErrorIs(t, err, ErrPinMismatch)
			assert.Equal(t, i, w.PinAttempts)
		}

		err := w.VerifyPin("0000", now, maxAttempts, lockFor)
		var locked ErrPinLocked
		require.ErrorAs(t, err, &locked)
		assert.ErrorIs(t, err, shared.ErrPinLocked)
		assert.Equal(t, now.Add(lockFor), locked.Until)
		require.NotNil(t, w.PinLockedUntil)

		// correct pin is refused while locked
		err = w.VerifyPin("4821", now.Add(29*time.Minute), maxAttempts, lockFor)
		assert.ErrorIs(t, err, shared.ErrPinLocked)

		// lock elapsed
		err = w.VerifyPin("4821", now.Add(lockFor), maxAttempts, lockFor)
		assert.NoError(t, err)
		assert.Nil(t, w.PinLockedUntil)
		assert.Equal(t, 0, w.PinAttempts)
	})

	t.Run("ExpiredLockStartsFreshCount", func(t *testing.T) {
		w := withPin(t)
		past := time.Now().Add(-time.Minute)
		w.PinLockedUntil = &past
		w.PinAttempts = maxAttempts

		err := w.VerifyPin("0000", time.Now(), maxAttempts, lockFor)
		assert.ErrorIs(t, err, ErrPinMismatch)
		assert.Equal(t, 1, w.PinAttempts)
		assert.Nil(t, w.PinLockedUntil)
	})

	t.Run("SetPinClearsLock", func(t *testing.T) {
		w := withPin(t)
		until := time.Now().Add(time.Hour)
		w.PinLockedUntil = &until
		w.PinAttempts = maxAttempts

		w.SetPin(w.PinHash)
		assert.Equal(t, 0, w.PinAttempts)
		assert.NoError(t, w.CheckPinLock(time.Now()))
	})
}
