package event

import (
	"crypto/sha256"
	"fmt"
	"hash"

	"github.com/fxamacker/cbor/v2"
)

// Digest is a Publisher computing a tamper-evident checksum over the event
// stream: each event is chained into a running SHA256 as
// H(prev || name || CBOR(event)), so two streams agree iff they carry the
// same events in the same order. Events are encoded deterministically;
// an event the codec cannot encode poisons the digest and surfaces as an
// error from Sum.
type Digest struct {
	prev []byte
	err  error
}

func NewDigest() *Digest {
	return &Digest{prev: make([]byte, sha256.Size)}
}

func (d *Digest) Publish(e Event) {
	if d.err != nil {
		return
	}
	h := sha256.New()
	h.Write(d.prev)
	if err := d.write(h, e.Name()); err != nil {
		d.err = fmt.Errorf("encoding event %q: %w", e.Name(), err)
		return
	}
	if err := d.write(h, e); err != nil {
		d.err = fmt.Errorf("encoding event %q: %w", e.Name(), err)
		return
	}
	d.prev = h.Sum(nil)
}

func (d *Digest) write(h hash.Hash, v any) error {
	return encoderMode.NewEncoder(h).Encode(v)
}

// Sum returns the digest of everything published so far and the first
// encoding error, if any (a non-nil error invalidates the digest).
func (d *Digest) Sum() ([]byte, error) {
	if d.err != nil {
		return nil, d.err
	}
	out := make([]byte, len(d.prev))
	copy(out, d.prev)
	return out, nil
}

var encoderMode cbor.EncMode

func init() {
	var err error
	if encoderMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(fmt.Errorf("initializing CBOR encoder mode: %w", err))
	}
}
