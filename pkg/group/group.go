// Package group instantiates the prime-order group and scalar field the GJKR
// protocol is run over. It is the concrete collaborator `spec.md` leaves as
// an external interface (generator, scalar arithmetic, hash-to-group,
// hash-to-scalar, variable-time multi-scalar multiplication), bound to the
// Ristretto group via github.com/gtank/ristretto255.
//
// Every other package in this module (pedersen, hybrid, dleq, polynomial,
// gjkr) is written against Scalar and Element and never imports
// ristretto255 directly, so swapping the underlying curve only touches this
// file.
package group

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/gtank/ristretto255"
	"golang.org/x/crypto/blake2b"
)

// scalarEncodedLen and elementEncodedLen are the canonical, fixed-width
// encodings used on the wire for every broadcast payload in pkg/gjkr.
const (
	scalarEncodedLen  = 32
	elementEncodedLen = 32
	wideHashLen       = 64
)

// Scalar is an element of F_q, the scalar field of the group.
type Scalar struct {
	s *ristretto255.Scalar
}

// Element is a point in the prime-order group G.
type Element struct {
	e *ristretto255.Element
}

// Generator returns the group's distinguished base point g.
func Generator() Element {
	return Element{ristretto255.NewElement().ScalarBaseMult(scalarOneRaw())}
}

// Identity returns the identity element of G, the additive zero.
//
// The ristretto255 identity point is canonically encoded as 32 zero bytes,
// so decoding that string is a cheap way to obtain it without relying on a
// constructor the wrapped library may not export.
func Identity() Element {
	var zero [elementEncodedLen]byte
	e := ristretto255.NewElement()
	if err := e.Decode(zero[:]); err != nil {
		panic(fmt.Sprintf("group: identity encoding rejected: %v", err))
	}
	return Element{e}
}

// ScalarZero returns the additive identity of F_q.
func ScalarZero() Scalar {
	return Scalar{scalarZeroRaw()}
}

// ScalarOne returns the multiplicative identity of F_q.
func ScalarOne() Scalar {
	return Scalar{scalarOneRaw()}
}

func scalarZeroRaw() *ristretto255.Scalar {
	var zero [scalarEncodedLen]byte
	s := ristretto255.NewScalar()
	if err := s.Decode(zero[:]); err != nil {
		panic(fmt.Sprintf("group: zero scalar encoding rejected: %v", err))
	}
	return s
}

func scalarOneRaw() *ristretto255.Scalar {
	var one [scalarEncodedLen]byte
	one[0] = 1
	s := ristretto255.NewScalar()
	if err := s.Decode(one[:]); err != nil {
		panic(fmt.Sprintf("group: one scalar encoding rejected: %v", err))
	}
	return s
}

// ScalarFromUint64 embeds a small integer (a member index, typically) into
// F_q. It is used wherever the protocol needs `i`, the 1-based member
// index, as a scalar exponent.
func ScalarFromUint64(v uint64) Scalar {
	var buf [scalarEncodedLen]byte
	for i := 0; i < 8 && i < scalarEncodedLen; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	s := ristretto255.NewScalar()
	if err := s.Decode(buf[:]); err != nil {
		panic(fmt.Sprintf("group: small scalar encoding rejected: %v", err))
	}
	return Scalar{s}
}

// RandomScalar samples a cryptographically uniform scalar from rng.
func RandomScalar(rng io.Reader) (Scalar, error) {
	var wide [wideHashLen]byte
	if _, err := io.ReadFull(rng, wide[:]); err != nil {
		return Scalar{}, fmt.Errorf("group: failed to sample scalar: %w", err)
	}
	return Scalar{ristretto255.NewScalar().FromUniformBytes(wide[:])}, nil
}

// HashToScalar derives a scalar deterministically from a domain separation
// tag and an arbitrary number of message fragments, via a wide (64 byte)
// blake2b digest reduced into F_q. Used for Fiat-Shamir challenges.
func HashToScalar(domain string, msgs ...[]byte) Scalar {
	return Scalar{ristretto255.NewScalar().FromUniformBytes(wideHash(domain, msgs...))}
}

// HashToGroup derives a "nothing up my sleeve" group element from a domain
// separation tag and message fragments. Used to derive the Pedersen
// commitment key's second generator `h`.
func HashToGroup(domain string, msgs ...[]byte) Element {
	return Element{ristretto255.NewElement().FromUniformBytes(wideHash(domain, msgs...))}
}

func wideHash(domain string, msgs ...[]byte) []byte {
	h, err := blake2b.New(wideHashLen, nil)
	if err != nil {
		panic(fmt.Sprintf("group: blake2b init failed: %v", err))
	}
	_, _ = h.Write([]byte(domain))
	for _, m := range msgs {
		_, _ = h.Write(m)
	}
	return h.Sum(nil)
}

// Add returns s + t.
func (s Scalar) Add(t Scalar) Scalar {
	return Scalar{ristretto255.NewScalar().Add(s.s, t.s)}
}

// Sub returns s - t.
func (s Scalar) Sub(t Scalar) Scalar {
	return Scalar{ristretto255.NewScalar().Subtract(s.s, t.s)}
}

// Mul returns s * t.
func (s Scalar) Mul(t Scalar) Scalar {
	return Scalar{ristretto255.NewScalar().Multiply(s.s, t.s)}
}

// Neg returns -s.
func (s Scalar) Neg() Scalar {
	return Scalar{ristretto255.NewScalar().Negate(s.s)}
}

// Invert returns s^-1, the multiplicative inverse of s in F_q. Used by
// Lagrange interpolation when reconstructing a disqualified or absent
// dealer's polynomial from disclosed points. Panics if s is zero, since F_q
// has no multiplicative inverse for zero and no caller in this module ever
// has a legitimate reason to invert it.
func (s Scalar) Invert() Scalar {
	if s.IsZero() {
		panic("group: cannot invert zero scalar")
	}
	return Scalar{ristretto255.NewScalar().Invert(s.s)}
}

// Equal reports whether s and t represent the same field element.
func (s Scalar) Equal(t Scalar) bool {
	return s.s.Equal(t.s) == 1
}

// IsZero reports whether s is the additive identity.
func (s Scalar) IsZero() bool {
	return s.Equal(ScalarZero())
}

// Bytes returns the canonical 32-byte little-endian encoding of s.
func (s Scalar) Bytes() []byte {
	return s.s.Encode(make([]byte, 0, scalarEncodedLen))
}

// ScalarFromBytes decodes a canonical scalar encoding. It rejects any
// encoding that is not the unique canonical representative of its class,
// i.e. any value >= q, per `spec.md` §3's from_bytes contract.
func ScalarFromBytes(b []byte) (Scalar, bool) {
	if len(b) != scalarEncodedLen {
		return Scalar{}, false
	}
	s := ristretto255.NewScalar()
	if err := s.Decode(b); err != nil {
		return Scalar{}, false
	}
	return Scalar{s}, true
}

// Powers returns a lazily-evaluated stream of ascending powers of s,
// starting at s^0 = 1. It mirrors the `exp_iter` iterator of the protocol
// this module was distilled from.
func (s Scalar) Powers() *ScalarPowers {
	return &ScalarPowers{x: s, next: ScalarOne()}
}

// ScalarPowers is an iterator over 1, s, s^2, s^3, ...
type ScalarPowers struct {
	x    Scalar
	next Scalar
}

// Next returns the next power in the sequence and advances the iterator.
func (p *ScalarPowers) Next() Scalar {
	cur := p.next
	p.next = p.next.Mul(p.x)
	return cur
}

// Add returns e + f.
func (e Element) Add(f Element) Element {
	return Element{ristretto255.NewElement().Add(e.e, f.e)}
}

// Sub returns e - f.
func (e Element) Sub(f Element) Element {
	return Element{ristretto255.NewElement().Subtract(e.e, f.e)}
}

// Neg returns -e.
func (e Element) Neg() Element {
	return Element{ristretto255.NewElement().Negate(e.e)}
}

// Mul returns e scalar-multiplied by s, i.e. e^s in multiplicative notation.
func (e Element) Mul(s Scalar) Element {
	return Element{ristretto255.NewElement().ScalarMult(s.s, e.e)}
}

// Equal reports whether e and f represent the same group element.
func (e Element) Equal(f Element) bool {
	return e.e.Equal(f.e) == 1
}

// Bytes returns the canonical 32-byte encoding of e.
func (e Element) Bytes() []byte {
	return e.e.Encode(make([]byte, 0, elementEncodedLen))
}

// ElementFromBytes decodes a canonical element encoding, rejecting any
// byte string that does not represent a valid Ristretto group element.
func ElementFromBytes(b []byte) (Element, bool) {
	if len(b) != elementEncodedLen {
		return Element{}, false
	}
	e := ristretto255.NewElement()
	if err := e.Decode(b); err != nil {
		return Element{}, false
	}
	return Element{e}, true
}

// ScalarBaseMul returns g^s, the generator raised to s.
func ScalarBaseMul(s Scalar) Element {
	return Element{ristretto255.NewElement().ScalarBaseMult(s.s)}
}

// VarTimeMultiScalarMul computes Σ scalars[i] * points[i] in variable time.
// Only ever called on public data (commitment coefficients and powers of a
// public member index), never on secrets, per `spec.md` §5's constant-time
// policy.
func VarTimeMultiScalarMul(scalars []Scalar, points []Element) Element {
	if len(scalars) != len(points) {
		panic("group: VarTimeMultiScalarMul: mismatched scalar/point counts")
	}
	acc := Identity()
	for i := range scalars {
		acc = acc.Add(points[i].Mul(scalars[i]))
	}
	return acc
}

// RandomElement is a convenience used by tests to sample a uniformly random
// group element without going through a scalar multiplication.
func RandomElement(rng io.Reader) (Element, error) {
	var wide [wideHashLen]byte
	if _, err := io.ReadFull(rng, wide[:]); err != nil {
		return Element{}, fmt.Errorf("group: failed to sample element: %w", err)
	}
	return Element{ristretto255.NewElement().FromUniformBytes(wide[:])}, nil
}

// SecureRandom is the default CSPRNG source used across this module,
// threaded explicitly wherever randomness is required, per `spec.md` §5.
var SecureRandom io.Reader = rand.Reader
