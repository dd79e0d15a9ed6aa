package gjkr

import (
	"fmt"

	"github.com/keep-network/threshold-dkg/pkg/pedersen"
)

// Environment is the shared public configuration every member constructs
// its driver against: committee size, threshold, and the Pedersen
// commitment key. This keeps the teacher's `DKG`/`Environment` shape
// (a validating constructor, no separate config-file layer) rather than
// introducing one the core protocol never needed.
type Environment struct {
	T  int
	N  int
	CK pedersen.CommitmentKey
}

// NewEnvironment validates and constructs a shared Environment. seed is an
// arbitrary shared byte string the whole committee has agreed on out of
// band, used to derive the Pedersen commitment key's second generator.
func NewEnvironment(t, n int, seed []byte) (Environment, error) {
	if t < 1 || t > n {
		return Environment{}, fmt.Errorf("gjkr: invalid environment: threshold must satisfy 1 <= t <= n, got t=%d n=%d", t, n)
	}
	if t <= n/2 {
		return Environment{}, fmt.Errorf("gjkr: invalid environment: threshold must satisfy t > n/2, got t=%d n=%d", t, n)
	}
	return Environment{T: t, N: n, CK: pedersen.NewCommitmentKey(seed)}, nil
}
