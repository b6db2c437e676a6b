package vaultcrypto

import (
	"time"

	"golang.org/x/crypto/argon2"
)

// DefaultArgon2idVersion is the argon2.Version this package targets.
const DefaultArgon2idVersion = argon2.Version19

// Argon2Params are the tunable costs of the Argon2id KDF.
type Argon2Params struct {
	MemoryKiB   uint32 // memory cost, in KiB
	Iterations  uint32 // time cost
	Parallelism uint8
	Version     int
}

// minProductionMemoryKiB is the floor [BenchmarkArgon2idParams] will never
// go below, regardless of how fast the host derives keys.
const minProductionMemoryKiB = 64 * 1024

// targetDerivationTime is the duration [BenchmarkArgon2idParams] aims for.
const targetDerivationTime = 1000 * time.Millisecond

// Argon2idKDF derives keys of a fixed length using a fixed parameter set.
type Argon2idKDF struct {
	params Argon2Params
	keyLen uint32
}

type Argon2idKDFOpt func(*Argon2idKDF)

// NewArgon2idKDF builds a KDF over the given params with a 32-byte default
// output length, the length every typed key in this package requires.
func NewArgon2idKDF(params Argon2Params, opts ...Argon2idKDFOpt) *Argon2idKDF {
	if params.Version == 0 {
		params.Version = DefaultArgon2idVersion
	}

	kdf := &Argon2idKDF{params: params, keyLen: KeySize}

	for _, opt := range opts {
		opt(kdf)
	}

	return kdf
}

func WithKeyLen(n uint32) Argon2idKDFOpt {
	return func(kdf *Argon2idKDF) { kdf.keyLen = n }
}

// DeriveKey runs Argon2id over password and salt under the KDF's parameters.
// The caller is responsible for zeroizing password after this returns.
func (a *Argon2idKDF) DeriveKey(password, salt []byte) []byte {
	p := a.params
	return argon2.IDKey(password, salt, p.Iterations, p.MemoryKiB, p.Parallelism, a.keyLen)
}

func (a *Argon2idKDF) Params() Argon2Params {
	return a.params
}

// argon2idBenchmarkMemoryCandidatesKiB is the memory axis of the search grid
// walked by [BenchmarkArgon2idParams].
var argon2idBenchmarkMemoryCandidatesKiB = []uint32{32 * 1024, 64 * 1024, 128 * 1024}

// benchmarkParallelism is fixed across the search grid; only memory and
// iteration count vary during calibration.
const benchmarkParallelism = 4

// nowFunc and deriveFunc are swapped out in tests so the benchmark search
// runs deterministically without spending a second of real wall-clock time.
var (
	nowFunc    = time.Now
	deriveFunc = func(params Argon2Params, password, salt []byte) []byte {
		return argon2.IDKey(password, salt, params.Iterations, params.MemoryKiB, params.Parallelism, KeySize)
	}
)

// BenchmarkArgon2idParams measures Argon2id derivation time for
// memory_kib ∈ {32, 64, 128 MiB} × iterations ∈ 1..5 on the current device,
// and returns the parameter set whose measured time is closest to 1000ms,
// subject to a floor of 64 MiB.
//
// password and salt are representative inputs only; they are not retained.
func BenchmarkArgon2idParams(password, salt []byte) Argon2Params {
	var (
		best     Argon2Params
		bestDiff time.Duration = -1
	)

	for _, memKiB := range argon2idBenchmarkMemoryCandidatesKiB {
		for iterations := uint32(1); iterations <= 5; iterations++ {
			params := Argon2Params{
				MemoryKiB:   memKiB,
				Iterations:  iterations,
				Parallelism: benchmarkParallelism,
				Version:     DefaultArgon2idVersion,
			}

			start := nowFunc()
			_ = deriveFunc(params, password, salt)
			elapsed := nowFunc().Sub(start)

			diff := elapsed - targetDerivationTime
			if diff < 0 {
				diff = -diff
			}

			if memKiB < minProductionMemoryKiB {
				continue
			}

			if bestDiff < 0 || diff < bestDiff {
				best, bestDiff = params, diff
			}
		}
	}

	if bestDiff < 0 {
		// Every candidate was below the production floor; fall back to the
		// floor at a single iteration rather than return a zero value.
		best = Argon2Params{
			MemoryKiB:   minProductionMemoryKiB,
			Iterations:  1,
			Parallelism: benchmarkParallelism,
			Version:     DefaultArgon2idVersion,
		}
	}

	return best
}
