package service

import (
	"testing"

	"github.com/bitpal/wallet-service/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestTransactionTransitions(t *testing.T) {
	cases := []struct {
		from, to string
		allowed  bool
	}{
		{domain.TxStatusPending, domain.TxStatusSuccess, true},
		{domain.TxStatusPending, domain.TxStatusFailed, true},
		{domain.TxStatusSuccess, domain.TxStatusFailed, false},
		{domain.TxStatusSuccess, domain.TxStatusPending, false},
		{domain.TxStatusFailed, domain.TxStatusSuccess, false},
		{domain.TxStatusFailed, domain.TxStatusPending, false},
		{"bogus", domain.TxStatusSuccess, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, canTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
