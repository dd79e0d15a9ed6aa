// Package polynomial implements the degree-t univariate polynomials over
// F_q used by the dealer phase of the GJKR protocol: random sampling,
// Horner evaluation, and constant-term access.
//
// Grounded on the `generatePolynomial`/`evaluateMemberShare` pair in the
// teacher's pkg/beacon/relay/gjkr/protocol.go, generalized from math/big
// arithmetic mod a safe prime to group.Scalar arithmetic over Ristretto's
// scalar field.
package polynomial

import (
	"fmt"
	"io"

	"github.com/keep-network/threshold-dkg/pkg/group"
)

// Polynomial is p(x) = a_0 + a_1*x + ... + a_t*x^t over F_q.
type Polynomial struct {
	coefficients []group.Scalar
}

// Random samples a polynomial of the given degree with uniform coefficients.
func Random(degree int, rng io.Reader) (Polynomial, error) {
	if degree < 0 {
		return Polynomial{}, fmt.Errorf("polynomial: degree must be non-negative, got %d", degree)
	}
	coefficients := make([]group.Scalar, degree+1)
	for i := range coefficients {
		s, err := group.RandomScalar(rng)
		if err != nil {
			return Polynomial{}, fmt.Errorf("polynomial: failed to sample coefficient %d: %w", i, err)
		}
		coefficients[i] = s
	}
	return Polynomial{coefficients}, nil
}

// FromCoefficients wraps an explicit coefficient slice, lowest degree first.
// Used by tests that need to fix a polynomial rather than sample one.
func FromCoefficients(coefficients []group.Scalar) Polynomial {
	cp := make([]group.Scalar, len(coefficients))
	copy(cp, coefficients)
	return Polynomial{cp}
}

// Degree returns the polynomial's degree.
func (p Polynomial) Degree() int {
	return len(p.coefficients) - 1
}

// Coefficients returns the polynomial's coefficients, lowest degree first.
// The returned slice is a copy; mutating it does not affect p.
func (p Polynomial) Coefficients() []group.Scalar {
	cp := make([]group.Scalar, len(p.coefficients))
	copy(cp, p.coefficients)
	return cp
}

// Coefficient returns the k-th coefficient a_k.
func (p Polynomial) Coefficient(k int) group.Scalar {
	return p.coefficients[k]
}

// ConstantTerm returns a_0, the polynomial's value at x = 0.
func (p Polynomial) ConstantTerm() group.Scalar {
	return p.coefficients[0]
}

// Evaluate computes p(x) via Horner's rule.
func (p Polynomial) Evaluate(x group.Scalar) group.Scalar {
	result := group.ScalarZero()
	for i := len(p.coefficients) - 1; i >= 0; i-- {
		result = result.Mul(x).Add(p.coefficients[i])
	}
	return result
}

// Point is one (x, p(x)) sample used to reconstruct a polynomial that was
// never itself disclosed, only a subset of its evaluations.
type Point struct {
	X group.Scalar
	Y group.Scalar
}

// Interpolate reconstructs p(at) via Lagrange interpolation over the given
// points, without ever reconstructing the polynomial's coefficients
// themselves. Grounded on the teacher's calculateLagrangeCoefficient /
// ReconstructIndividualPrivateKeys pair in
// pkg/beacon/relay/gjkr/protocol.go, generalized from math/big modular
// arithmetic to group.Scalar arithmetic over F_q.
//
// Callers must supply at least as many points as the polynomial's degree
// plus one; Interpolate does not itself check this, since it has no way to
// know the degree from points alone.
func Interpolate(points []Point, at group.Scalar) group.Scalar {
	result := group.ScalarZero()
	for j, pj := range points {
		numerator := group.ScalarOne()
		denominator := group.ScalarOne()
		for m, pm := range points {
			if m == j {
				continue
			}
			numerator = numerator.Mul(at.Sub(pm.X))
			denominator = denominator.Mul(pj.X.Sub(pm.X))
		}
		lj := numerator.Mul(denominator.Invert())
		result = result.Add(pj.Y.Mul(lj))
	}
	return result
}
