package storage

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openscf/scf-go/cbor"
)

type entry struct {
	data []byte
	// deadline is the expiry time of the entry; zero means the entry never
	// expires (instance-lifetime keys and stores without a TTL).
	deadline time.Time
}

type undoRecord struct {
	key     string
	prev    entry
	existed bool
}

// MemStore is an in-memory TxStore. Entries under persistent keys carry an
// expiry deadline that is refreshed on every access; reading an entry past
// its deadline behaves as if the entry were absent.
//
// The execution model is single-threaded (one top-level call at a time), so
// the store performs no locking.
type MemStore struct {
	entries map[string]entry
	journal []undoRecord
	marks   []int
	ttl     time.Duration
	now     func() time.Time
}

type MemStoreOption func(*MemStore)

// WithTTL sets the lifetime applied to persistent entries. Zero (the
// default) disables expiry.
func WithTTL(ttl time.Duration) MemStoreOption {
	return func(m *MemStore) { m.ttl = ttl }
}

func WithClock(now func() time.Time) MemStoreOption {
	return func(m *MemStore) { m.now = now }
}

func NewMemStore(opts ...MemStoreOption) *MemStore {
	m := &MemStore{
		entries: map[string]entry{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Namespace returns a view of the store scoped to the given contract
// address. Views share the underlying entries and transaction journal, so
// one transaction covers writes made through any number of views.
func (m *MemStore) Namespace(contract common.Address) TxStore {
	return &nsView{core: m, prefix: contract}
}

func (m *MemStore) Get(key Key, out any) (bool, error) {
	return m.get(nil, key, out)
}

func (m *MemStore) Set(key Key, val any) error {
	return m.set(nil, key, val)
}

func (m *MemStore) Remove(key Key) error {
	return m.remove(nil, key)
}

func (m *MemStore) Has(key Key) (bool, error) {
	return m.has(nil, key)
}

func (m *MemStore) Begin() {
	m.marks = append(m.marks, len(m.journal))
}

func (m *MemStore) Commit() {
	if len(m.marks) == 0 {
		return
	}
	m.marks = m.marks[:len(m.marks)-1]
	if len(m.marks) == 0 {
		m.journal = m.journal[:0]
	}
}

func (m *MemStore) Rollback() {
	if len(m.marks) == 0 {
		return
	}
	mark := m.marks[len(m.marks)-1]
	m.marks = m.marks[:len(m.marks)-1]
	for i := len(m.journal) - 1; i >= mark; i-- {
		rec := m.journal[i]
		if rec.existed {
			m.entries[rec.key] = rec.prev
		} else {
			delete(m.entries, rec.key)
		}
	}
	m.journal = m.journal[:mark]
}

func (m *MemStore) get(prefix []byte, key Key, out any) (bool, error) {
	mk, e, ok, err := m.lookup(prefix, key)
	if err != nil || !ok {
		return false, err
	}
	if err := cbor.Unmarshal(e.data, out); err != nil {
		return false, fmt.Errorf("decoding value for key tag %d: %w", key.Tag, err)
	}
	m.refresh(mk, e, key)
	return true, nil
}

func (m *MemStore) has(prefix []byte, key Key) (bool, error) {
	mk, e, ok, err := m.lookup(prefix, key)
	if err != nil || !ok {
		return false, err
	}
	m.refresh(mk, e, key)
	return true, nil
}

func (m *MemStore) set(prefix []byte, key Key, val any) error {
	mk, err := mapKey(prefix, key)
	if err != nil {
		return err
	}
	data, err := cbor.Marshal(val)
	if err != nil {
		return fmt.Errorf("encoding value for key tag %d: %w", key.Tag, err)
	}
	m.record(mk)
	e := entry{data: data}
	if key.Persistent() && m.ttl > 0 {
		e.deadline = m.now().Add(m.ttl)
	}
	m.entries[mk] = e
	return nil
}

func (m *MemStore) remove(prefix []byte, key Key) error {
	mk, err := mapKey(prefix, key)
	if err != nil {
		return err
	}
	if _, ok := m.entries[mk]; ok {
		m.record(mk)
		delete(m.entries, mk)
	}
	return nil
}

// lookup resolves the entry for key, treating expired entries as absent.
func (m *MemStore) lookup(prefix []byte, key Key) (string, entry, bool, error) {
	mk, err := mapKey(prefix, key)
	if err != nil {
		return "", entry{}, false, err
	}
	e, ok := m.entries[mk]
	if !ok {
		return mk, entry{}, false, nil
	}
	if !e.deadline.IsZero() && m.now().After(e.deadline) {
		return mk, entry{}, false, nil
	}
	return mk, e, true, nil
}

// refresh extends the entry deadline on access. The refresh itself is not
// journaled: a lifetime extension surviving a rollback has no effect on the
// data the transaction touched.
func (m *MemStore) refresh(mk string, e entry, key Key) {
	if key.Persistent() && m.ttl > 0 {
		e.deadline = m.now().Add(m.ttl)
		m.entries[mk] = e
	}
}

func (m *MemStore) record(mk string) {
	if len(m.marks) == 0 {
		return
	}
	prev, existed := m.entries[mk]
	m.journal = append(m.journal, undoRecord{key: mk, prev: prev, existed: existed})
}

func mapKey(prefix []byte, key Key) (string, error) {
	kb, err := key.Bytes()
	if err != nil {
		return "", err
	}
	return string(prefix) + string(kb), nil
}

// nsView scopes all keys to one contract address. It delegates transaction
// control to the shared core store.
type nsView struct {
	core   *MemStore
	prefix common.Address
}

func (v *nsView) Get(key Key, out any) (bool, error) {
	return v.core.get(v.prefix[:], key, out)
}

func (v *nsView) Set(key Key, val any) error {
	return v.core.set(v.prefix[:], key, val)
}

func (v *nsView) Remove(key Key) error {
	return v.core.remove(v.prefix[:], key)
}

func (v *nsView) Has(key Key) (bool, error) {
	return v.core.has(v.prefix[:], key)
}

func (v *nsView) Begin()    { v.core.Begin() }
func (v *nsView) Commit()   { v.core.Commit() }
func (v *nsView) Rollback() { v.core.Rollback() }
