package types

import "strconv"

type (
	// CertID identifies a certificate within one ledger instance. Ids are
	// allocated from a monotonic counter; id 0 is the root certificate.
	CertID int64

	// OfferID identifies an offer within one pool instance.
	OfferID int64
)

func (id CertID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func (id OfferID) String() string {
	return strconv.FormatInt(int64(id), 10)
}
