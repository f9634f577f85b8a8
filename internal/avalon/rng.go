package avalon

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"time"
)

// RNG is the randomness capability the Engine draws on for seating
// shuffle, role shuffle, leader pick, and mission-vote shuffle. Tests
// inject a fixed-seed implementation; production wires NewCryptoRNG.
type RNG interface {
	Shuffle(n int, swap func(i, j int))
	Intn(n int) int
}

// mathRNG adapts a *rand.Rand (v2) to the RNG capability.
type mathRNG struct {
	r *rand.Rand
}

func (m mathRNG) Shuffle(n int, swap func(i, j int)) { m.r.Shuffle(n, swap) }
func (m mathRNG) Intn(n int) int                     { return m.r.IntN(n) }

// NewCryptoRNG returns an RNG seeded from a cryptographically secure
// source (crypto/rand), satisfying spec §9's "non-predictable in
// production" requirement without needing a CSPRNG shuffle on every
// call.
func NewCryptoRNG() RNG {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		// crypto/rand failing means the OS entropy source is broken;
		// fall back to a time-derived seed rather than panic.
		binary.LittleEndian.PutUint64(seed[:8], uint64(noDeterministicNow()))
	}
	return mathRNG{r: rand.New(rand.NewChaCha8(seed))}
}

// NewSeededRNG returns a deterministic RNG for tests.
func NewSeededRNG(seed uint64) RNG {
	return mathRNG{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func noDeterministicNow() int64 {
	return time.Now().UnixNano()
}
