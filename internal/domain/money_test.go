package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "integer", in: "5000", want: "5000"},
		{name: "one decimal", in: "12.5", want: "12.5"},
		{name: "two decimals", in: "99.99", want: "99.99"},
		{name: "trailing zeros", in: "10.00", want: "10"},
		{name: "three decimals", in: "1.005", wantErr: true},
		{name: "not a number", in: "ten naira", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "scientific excess scale", in: "1e-3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				require.ErrorIs(t, err, ErrBadAmount)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestMinorUnitsRoundTrip(t *testing.T) {
	amount, err := ParseAmount("5000.25")
	require.NoError(t, err)

	kobo := MinorUnits(amount)
	assert.Equal(t, int64(500025), kobo)
	assert.True(t, FromMinorUnits(kobo).Equal(amount))
}

func TestAuthContextHas(t *testing.T) {
	ac := AuthContext{Capabilities: []Capability{CapabilityRead, CapabilityDeposit}}
	assert.True(t, ac.Has(CapabilityRead))
	assert.True(t, ac.Has(CapabilityDeposit))
	assert.False(t, ac.Has(CapabilityTransfer))
}
