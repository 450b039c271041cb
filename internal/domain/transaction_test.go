package domain

import (
	"errors"
	"testing"
)

func TestValidateTransition(t *testing.T) {
	allowed := []struct {
		from, to TransactionStatus
	}{
		{StatusInitiated, StatusPosted},
		{StatusInitiated, StatusCancelled},
		{StatusInitiated, StatusFailed},
		{StatusPosted, StatusSettled},
		{StatusPosted, StatusReversed},
		{StatusSettled, StatusReversed},
	}

	for _, tt := range allowed {
		if err := ValidateTransition(tt.from, tt.to); err != nil {
			t.Errorf("ValidateTransition(%s, %s) = %v, want nil", tt.from, tt.to, err)
		}
	}

	rejected := []struct {
		from, to TransactionStatus
	}{
		{StatusInitiated, StatusSettled},
		{StatusInitiated, StatusReversed},
		{StatusPosted, StatusInitiated},
		{StatusPosted, StatusCancelled},
		{StatusSettled, StatusCancelled},
		{StatusSettled, StatusPosted},
		{StatusReversed, StatusPosted},
		{StatusCancelled, StatusPosted},
		{StatusFailed, StatusInitiated},
		{StatusReversed, StatusReversed},
	}

	for _, tt := range rejected {
		err := ValidateTransition(tt.from, tt.to)
		if err == nil {
			t.Errorf("ValidateTransition(%s, %s) = nil, want error", tt.from, tt.to)
			continue
		}

		var invalid *InvalidTransitionError
		if !errors.As(err, &invalid) {
			t.Errorf("ValidateTransition(%s, %s) = %v, want InvalidTransitionError", tt.from, tt.to, err)
			continue
		}

		if invalid.From != tt.from || invalid.To != tt.to {
			t.Errorf("InvalidTransitionError = {%s, %s}, want {%s, %s}",
				invalid.From, invalid.To, tt.from, tt.to)
		}
	}
}

func TestTransactionStatus_Terminal(t *testing.T) {
	terminal := []TransactionStatus{StatusReversed, StatusCancelled, StatusFailed}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s.Terminal() = false, want true", s)
		}
	}

	live := []TransactionStatus{StatusInitiated, StatusPosted, StatusSettled}
	for _, s := range live {
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true, want false", s)
		}
	}
}
