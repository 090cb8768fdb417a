package domain

import "github.com/google/uuid"

const DefaultCurrency = "NGN"

// Transaction types.
const (
	TxTypeDeposit     = "deposit"
	TxTypeWithdrawal  = "withdrawal"
	TxTypeTransferIn  = "transfer_in"
	TxTypeTransferOut = "transfer_out"
)

// Transaction statuses. Transitions are forward-only: pending may become
// success or failed, and both of those are terminal.
const (
	TxStatusPending = "pending"
	TxStatusSuccess = "success"
	TxStatusFailed  = "failed"
)

// Provider webhook event for a completed charge.
const EventChargeSuccess = "charge.success"

// Capability is a permission tag attached to an authorization context.
type Capability string

const (
	CapabilityDeposit  Capability = "deposit"
	CapabilityTransfer Capability = "transfer"
	CapabilityRead     Capability = "read"
)

// AllCapabilities is granted to interactive (JWT) sessions. API keys carry
// an explicit subset.
var AllCapabilities = []Capability{CapabilityDeposit, CapabilityTransfer, CapabilityRead}

// ValidCapability reports whether c is one of the enumerated tags.
func ValidCapability(c Capability) bool {
	switch c {
	case CapabilityDeposit, CapabilityTransfer, CapabilityRead:
		return true
	default:
		return false
	}
}

// AuthContext identifies the caller and the capabilities its credential
// grants. It is passed explicitly into every ledger-mutating call.
type AuthContext struct {
	UserID       uuid.UUID
	Capabilities []Capability
}

// Has reports whether the context grants the given capability.
func (a AuthContext) Has(c Capability) bool {
	for _, have := range a.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}
