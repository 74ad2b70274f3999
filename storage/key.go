package storage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openscf/scf-go/cbor"
	"github.com/openscf/scf-go/types"
)

// KeyTag discriminates the closed set of storage key variants. The numeric
// values are part of the stored encoding and must not be reordered.
type KeyTag uint8

const (
	TagAdmin KeyTag = iota + 1
	TagOrderInfo
	TagSupply
	TagExpired
	TagPaid
	TagExternalToken
	TagLoanContract
	TagOwner
	TagRecipient
	TagCertInfo
	TagDisabled
	TagLoanStatus
	TagApproval
	TagApprovalAll
	TagOffer
	TagOfferCount
	TagWhitelist
	TagBalance
)

// Key is a tagged storage key. Only the payload fields relevant for the tag
// are set; the encoded form is the deterministic CBOR of the full tuple.
type Key struct {
	_     struct{} `cbor:",toarray"`
	Tag   KeyTag
	ID    int64
	Addr  common.Address
	Addr2 common.Address
}

func AdminKey() Key         { return Key{Tag: TagAdmin} }
func OrderInfoKey() Key     { return Key{Tag: TagOrderInfo} }
func SupplyKey() Key        { return Key{Tag: TagSupply} }
func ExpiredKey() Key       { return Key{Tag: TagExpired} }
func PaidKey() Key          { return Key{Tag: TagPaid} }
func ExternalTokenKey() Key { return Key{Tag: TagExternalToken} }
func LoanContractKey() Key  { return Key{Tag: TagLoanContract} }
func OfferCountKey() Key    { return Key{Tag: TagOfferCount} }

func OwnerKey(id types.CertID) Key      { return Key{Tag: TagOwner, ID: int64(id)} }
func RecipientKey(id types.CertID) Key  { return Key{Tag: TagRecipient, ID: int64(id)} }
func CertInfoKey(id types.CertID) Key   { return Key{Tag: TagCertInfo, ID: int64(id)} }
func DisabledKey(id types.CertID) Key   { return Key{Tag: TagDisabled, ID: int64(id)} }
func LoanStatusKey(id types.CertID) Key { return Key{Tag: TagLoanStatus, ID: int64(id)} }
func ApprovalKey(id types.CertID) Key   { return Key{Tag: TagApproval, ID: int64(id)} }
func OfferKey(id types.OfferID) Key     { return Key{Tag: TagOffer, ID: int64(id)} }

func ApprovalAllKey(owner, operator common.Address) Key {
	return Key{Tag: TagApprovalAll, Addr: owner, Addr2: operator}
}

func WhitelistKey(token common.Address) Key {
	return Key{Tag: TagWhitelist, Addr: token}
}

func BalanceKey(holder common.Address) Key {
	return Key{Tag: TagBalance, Addr: holder}
}

// Persistent reports whether entries under this key are subject to expiry
// refresh. Instance-wide configuration keys live as long as the instance.
func (k Key) Persistent() bool {
	switch k.Tag {
	case TagAdmin, TagOrderInfo, TagExternalToken, TagLoanContract, TagWhitelist, TagOfferCount:
		return false
	default:
		return true
	}
}

func (k Key) Bytes() ([]byte, error) {
	data, err := cbor.Marshal(k)
	if err != nil {
		return nil, fmt.Errorf("encoding storage key: %w", err)
	}
	return data, nil
}
