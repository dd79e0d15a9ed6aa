// Package pedersen implements the Pedersen commitment scheme used by the
// dealer phase of GJKR to commit to polynomial coefficients:
// Com(m; r) = h^r * g^m, additively homomorphic in (m, r).
//
// Grounded on the teacher's pkg/beacon/relay/gjkr CalculateCommitment /
// areSharesValidAgainstCommitments pair (`C = g^a * h^b mod p`), generalized
// from a safe-prime multiplicative group to the additive group.Element API.
package pedersen

import (
	"github.com/keep-network/threshold-dkg/pkg/group"
)

// hGenerationDomain domain-separates the hash-to-group call that derives h
// from the shared commitment-key seed, so the same seed never collides
// with any other hash-to-group use in this module.
const hGenerationDomain = "threshold-dkg/pedersen/commitment-key-h/v1"

// CommitmentKey is the public parameter (g, h) of the Pedersen scheme. g is
// always the group generator; h is derived deterministically from a shared
// seed via hash-to-group, so nobody — including the party that picked the
// seed — can know log_g(h).
type CommitmentKey struct {
	G group.Element
	H group.Element
}

// NewCommitmentKey derives a commitment key from an arbitrary shared seed
// byte string, e.g. a string the whole committee has agreed on out of band.
func NewCommitmentKey(seed []byte) CommitmentKey {
	return CommitmentKey{
		G: group.Generator(),
		H: group.HashToGroup(hGenerationDomain, seed),
	}
}

// Commit computes Com(m; r) = h^r * g^m.
func (ck CommitmentKey) Commit(m, r group.Scalar) group.Element {
	return ck.H.Mul(r).Add(ck.G.Mul(m))
}

// VerifyAgainstCoefficients checks that Com(m; r) equals the evaluation, at
// point x, of the committed polynomial whose coefficient commitments are
// `commitments` (i.e. commitments[k] = Com(a_k; b_k) for k in [0..t]):
//
//	h^r * g^m == Σ x^k * commitments[k]
//
// This is the additive-homomorphism check the DKG performs against a
// sender's Broadcast1 commitments; the Broadcast3 check is
// VerifyAgainstPublicCoefficients.
func (ck CommitmentKey) VerifyAgainstCoefficients(
	m, r group.Scalar,
	x group.Scalar,
	commitments []group.Element,
) bool {
	lhs := ck.Commit(m, r)
	powers := x.Powers()
	scalars := make([]group.Scalar, len(commitments))
	for i := range commitments {
		scalars[i] = powers.Next()
	}
	rhs := group.VarTimeMultiScalarMul(scalars, commitments)
	return lhs.Equal(rhs)
}

// VerifyAgainstPublicCoefficients checks that g^m equals the evaluation, at
// point x, of the plain (randomness-free) public coefficient commitments
// `A` (i.e. A[k] = g^a_k):
//
//	g^m == Σ x^k * A[k]
//
// This is the disclosure-phase check (`spec.md` §4.4 Phase3 -> Phase4):
// it has no Pedersen blinding term because by that point the dealer is
// expected to publish its coefficients in the clear.
func VerifyAgainstPublicCoefficients(
	g group.Element,
	m group.Scalar,
	x group.Scalar,
	coefficients []group.Element,
) bool {
	lhs := g.Mul(m)
	powers := x.Powers()
	scalars := make([]group.Scalar, len(coefficients))
	for i := range coefficients {
		scalars[i] = powers.Next()
	}
	rhs := group.VarTimeMultiScalarMul(scalars, coefficients)
	return lhs.Equal(rhs)
}
