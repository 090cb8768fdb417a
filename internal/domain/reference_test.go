package domain

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReferenceFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^DEP_\d{13}_[0-9A-F]{8}$`)

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		ref := NewReference(ReferencePrefixDeposit)
		require.Regexp(t, pattern, ref)
		_, dup := seen[ref]
		require.False(t, dup, "duplicate reference %s", ref)
		seen[ref] = struct{}{}
	}
}

func TestTransferLegReferences(t *testing.T) {
	out, in := TransferLegReferences("TRF_1700000000000_DEADBEEF")
	assert.Equal(t, "TRF_1700000000000_DEADBEEF_OUT", out)
	assert.Equal(t, "TRF_1700000000000_DEADBEEF_IN", in)
}

func TestNewWalletNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^[1-9]\d{12}$`)
	for i := 0; i < 100; i++ {
		require.Regexp(t, pattern, NewWalletNumber())
	}
}
