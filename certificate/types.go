package certificate

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/openscf/scf-go/types"
)

const (
	// MaxSplitDepth is the deepest point in the split tree at which a
	// certificate may still be split.
	MaxSplitDepth = 5

	// minSplitDivisor: every split request must be at least 1/10 of the
	// root certificate's total amount.
	minSplitDivisor = 10
)

// CertInfo is the immutable split-tree record of one certificate.
type CertInfo struct {
	_      struct{}     `cbor:",toarray"`
	Parent types.CertID `json:"parent"`
	Depth  uint32       `json:"depth"`
	Amount uint32       `json:"amount"` // invoice-currency units, unscaled
}

// SplitRequest asks for a child certificate of the given amount, escrowed
// until To signs it off.
type SplitRequest struct {
	_      struct{}       `cbor:",toarray"`
	Amount uint32         `json:"amount"`
	To     common.Address `json:"to"`
}

// OrderInfo is fixed at initialization and never changes.
type OrderInfo struct {
	_           struct{}       `cbor:",toarray"`
	Buyer       common.Address `json:"buyer"`
	TotalAmount uint32         `json:"totalAmount"`
	EndTime     uint64         `json:"endTime"` // unix seconds, maturity
}

// ExternalToken is the payment token used for pay-off and redemption.
type ExternalToken struct {
	_        struct{}       `cbor:",toarray"`
	Contract common.Address `json:"contract"`
	Decimals uint32         `json:"decimals"`
}
