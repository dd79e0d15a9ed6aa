// Package dleq implements a Fiat-Shamir, non-interactive zero-knowledge
// proof of discrete-log equality: given (base1, base2, A, B), prove
// knowledge of w such that A = base1^w and B = base2^w, without revealing
// w. GJKR uses this both for accusation resolution (proving a claimed
// decryption of a complaint ciphertext is the correct one) and, via the
// specialization in this file, as the "correct hybrid decryption key"
// proof of `spec.md` §4.3.
//
// Grounded on the Chaum-Pedersen construction in
// other_examples/6e25259a_vocdoni-davinci-node__crypto-elgamal-proof.go.go
// (A1 = r*G, A2 = r*C1, e = H(...), z = r + e*d) and specialized per
// original_source/src/cryptography/correct_hybrid_decryption_key/zkp.rs
// (base1 = g, base2 = C1, A = pk, B = K, w = sk).
package dleq

import (
	"fmt"
	"io"

	"github.com/keep-network/threshold-dkg/pkg/group"
	"github.com/keep-network/threshold-dkg/pkg/hybrid"
)

// transcriptDomain domain-separates the Fiat-Shamir challenge hash from any
// other hash-to-scalar use in this module.
const transcriptDomain = "threshold-dkg/dleq/fiat-shamir-challenge/v1"

// Proof is a non-interactive discrete-log-equality proof: commitments
// (T1, T2) and a response z, such that
//
//	base1^z == T1 * A^e
//	base2^z == T2 * B^e
//
// for the Fiat-Shamir challenge e derived from the full transcript.
type Proof struct {
	T1 group.Element
	T2 group.Element
	Z  group.Scalar
}

// Generate proves knowledge of w such that A = base1^w and B = base2^w.
// The caller is responsible for w actually satisfying that relation;
// Generate does not check it.
func Generate(
	base1, base2, A, B group.Element,
	w group.Scalar,
	rng io.Reader,
) (Proof, error) {
	k, err := group.RandomScalar(rng)
	if err != nil {
		return Proof{}, fmt.Errorf("dleq: failed to sample nonce: %w", err)
	}

	t1 := base1.Mul(k)
	t2 := base2.Mul(k)

	e := challenge(base1, base2, A, B, t1, t2)

	z := k.Add(e.Mul(w))

	return Proof{T1: t1, T2: t2, Z: z}, nil
}

// Verify checks that proof is a valid discrete-log-equality proof for
// (base1, base2, A, B).
func Verify(base1, base2, A, B group.Element, proof Proof) error {
	e := challenge(base1, base2, A, B, proof.T1, proof.T2)

	lhs1 := base1.Mul(proof.Z)
	rhs1 := proof.T1.Add(A.Mul(e))
	if !lhs1.Equal(rhs1) {
		return fmt.Errorf("dleq: verification failed for base1/A relation")
	}

	lhs2 := base2.Mul(proof.Z)
	rhs2 := proof.T2.Add(B.Mul(e))
	if !lhs2.Equal(rhs2) {
		return fmt.Errorf("dleq: verification failed for base2/B relation")
	}

	return nil
}

func challenge(base1, base2, A, B, t1, t2 group.Element) group.Scalar {
	return group.HashToScalar(
		transcriptDomain,
		base1.Bytes(), base2.Bytes(),
		A.Bytes(), B.Bytes(),
		t1.Bytes(), t2.Bytes(),
	)
}

// CorrectDecryptionProof proves that a symmetric key recovered from a
// hybrid ciphertext (`spec.md` §4.3) was correctly computed as C1^sk for
// the secret key corresponding to pk, i.e. it is the `base1=g, base2=C1,
// A=pk, B=K` specialization of the generic DLEQ relation above.
func GenerateCorrectDecryption(
	sk hybrid.SecretKey,
	ciphertext hybrid.Ciphertext,
	rng io.Reader,
) (Proof, error) {
	pk := sk.Public().Element()
	symmetricKey := sk.RecoverSymmetricKey(ciphertext).GroupElement
	return Generate(group.Generator(), ciphertext.C1, pk, symmetricKey, sk.Scalar(), rng)
}

// VerifyCorrectDecryption checks a correct-decryption proof generated by
// GenerateCorrectDecryption: that symmetricKey = ciphertext.C1^sk for the
// sk behind pk, without learning sk.
func VerifyCorrectDecryption(
	pk hybrid.PublicKey,
	ciphertext hybrid.Ciphertext,
	symmetricKey hybrid.SymmetricKey,
	proof Proof,
) error {
	return Verify(group.Generator(), ciphertext.C1, pk.Element(), symmetricKey.GroupElement, proof)
}
