package types

import "fmt"

// LoanStatus tracks whether a certificate is pledged as collateral. It is
// settable only through the ledger by the registered loan contract.
type LoanStatus uint32

const (
	LoanFree   LoanStatus = 0
	LoanLoaned LoanStatus = 1
	LoanClosed LoanStatus = 2
)

func (s LoanStatus) String() string {
	switch s {
	case LoanFree:
		return "free"
	case LoanLoaned:
		return "loaned"
	case LoanClosed:
		return "closed"
	default:
		return fmt.Sprintf("loanStatus(%d)", uint32(s))
	}
}

// OfferStatus is the lifecycle state of an offer. Valid transitions are
// Pending->Accepted, Pending->Closed (expire) and Accepted->Closed.
type OfferStatus uint32

const (
	OfferPending  OfferStatus = 0
	OfferAccepted OfferStatus = 1
	OfferClosed   OfferStatus = 2
)

func (s OfferStatus) String() string {
	switch s {
	case OfferPending:
		return "pending"
	case OfferAccepted:
		return "accepted"
	case OfferClosed:
		return "closed"
	default:
		return fmt.Sprintf("offerStatus(%d)", uint32(s))
	}
}
