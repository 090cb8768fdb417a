package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// NewReference produces a transaction reference of the form
// {PREFIX}_{millisecond-timestamp}_{8 uppercase hex chars}. The random
// suffix makes collisions overwhelmingly unlikely, but the unique index on
// transactions.reference is the actual safety net: callers retry once with a
// fresh reference on a uniqueness violation.
func NewReference(prefix string) string {
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	return fmt.Sprintf("%s_%d_%s", strings.ToUpper(prefix), time.Now().UnixMilli(), strings.ToUpper(hex.EncodeToString(buf[:])))
}

// Well-known reference prefixes.
const (
	ReferencePrefixDeposit  = "DEP"
	ReferencePrefixTransfer = "TRF"
)

// TransferLegReferences derives the two leg references of a transfer from
// one shared base reference.
func TransferLegReferences(base string) (out, in string) {
	return base + "_OUT", base + "_IN"
}

// NewWalletNumber generates a 13-digit externally addressable wallet number.
// Uniqueness is enforced by the wallets.wallet_number constraint; creation
// retries on collision.
func NewWalletNumber() string {
	// 1000000000000 .. 9999999999999
	span := big.NewInt(9_000_000_000_000)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return fmt.Sprintf("%013d", time.Now().UnixNano()%9_000_000_000_000+1_000_000_000_000)
	}
	return fmt.Sprintf("%d", n.Int64()+1_000_000_000_000)
}
