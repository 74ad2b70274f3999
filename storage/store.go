/*
Package storage provides the typed key-value capability backing the
certificate ledger and the offer pool: a closed set of tagged keys, CBOR
value encoding, per-entry expiry refresh and journaled transactions.

The store is a platform collaborator, not part of the core state machines;
components receive it injected and never assume a particular backing.
*/
package storage

// Store is typed key-value access. Get decodes into out and reports whether
// the key was present; Set encodes val. Every successful access of a
// persistent entry refreshes its expiry deadline.
type Store interface {
	Get(key Key, out any) (bool, error)
	Set(key Key, val any) error
	Remove(key Key) error
	Has(key Key) (bool, error)
}

// TxStore is a Store with transaction support. Transactions nest: an inner
// Begin acts as a savepoint, so a component called from within another
// component's transaction may guard its own writes independently.
type TxStore interface {
	Store
	Begin()
	Commit()
	Rollback()
}

// WithTx runs fn inside a transaction on s, committing on success and
// rolling back every write if fn returns an error.
func WithTx(s TxStore, fn func() error) error {
	s.Begin()
	if err := fn(); err != nil {
		s.Rollback()
		return err
	}
	s.Commit()
	return nil
}
