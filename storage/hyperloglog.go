package storage

import (
	"hash/fnv"
	"math"
	"math/bits"
	"sync"
)

// hllAlpha is the bias-correction constant of the estimator
const hllAlpha = 0.79402

// hllHashBits is the width of the key hash in bits
const hllHashBits = 64

// HyperLogLog estimates the number of distinct keys in a stream using
// 2^b compact registers. Each register keeps the maximum "rank" seen for
// its bucket: the position of the leftmost one bit in the hash after the
// b index bits. Memory is O(2^b) regardless of stream length.
type HyperLogLog struct {
	registers   []uint8 // One per bucket, m = 2^b
	indexBits   uint8   // b: leading hash bits used for bucket selection
	cardinality uint64
	mu          sync.Mutex
}

// NewHyperLogLog creates an estimator with 2^nBits registers.
// Negative nBits is clamped to 0 (a single register).
func NewHyperLogLog(nBits int) *HyperLogLog {
	if nBits < 0 {
		nBits = 0
	}
	if nBits > 16 {
		nBits = 16 // 64K registers is ample for any realistic stream
	}

	return &HyperLogLog{
		registers: make([]uint8, 1<<nBits),
		indexBits: uint8(nBits),
	}
}

// mixHash finalizes a raw key hash so that every bit position is uniformly
// distributed. FNV-64a leaves its high bits poorly mixed for short keys,
// and the bucket index is taken from exactly those bits.
func mixHash(h uint64) uint64 {
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}

// Add hashes a key and feeds it to the estimator
func (hll *HyperLogLog) Add(key []byte) {
	h := fnv.New64a()
	h.Write(key)
	hll.AddHash(mixHash(h.Sum64()))
}

// AddUint64 feeds an integer key to the estimator.
// Integer keys are used as their own hash.
func (hll *HyperLogLog) AddUint64(val uint64) {
	hll.AddHash(val)
}

// AddHash feeds a precomputed 64-bit key hash to the estimator
func (hll *HyperLogLog) AddHash(hash uint64) {
	hll.mu.Lock()
	defer hll.mu.Unlock()

	index := hll.bucketIndex(hash)
	rank := hll.leftmostOneRank(hash)

	if rank > hll.registers[index] {
		hll.registers[index] = rank
	}
}

// bucketIndex selects a register from the top b bits of the hash
func (hll *HyperLogLog) bucketIndex(hash uint64) uint64 {
	return (hash >> (hllHashBits - uint(hll.indexBits))) & ((1 << hll.indexBits) - 1)
}

// leftmostOneRank returns the 1-based position of the first one bit after
// the index bits. A hash with no remaining one bits ranks 1.
func (hll *HyperLogLog) leftmostOneRank(hash uint64) uint8 {
	remaining := hash << hll.indexBits
	if remaining == 0 {
		return 1
	}
	return uint8(bits.LeadingZeros64(remaining)) + 1
}

// ComputeCardinality recomputes the estimate from the current registers
func (hll *HyperLogLog) ComputeCardinality() {
	hll.mu.Lock()
	defer hll.mu.Unlock()

	m := float64(len(hll.registers))
	sum := 0.0
	for _, reg := range hll.registers {
		sum += math.Pow(2, -float64(reg))
	}

	hll.cardinality = uint64(math.Floor(hllAlpha * m * m / sum))
}

// GetCardinality returns the estimate from the last ComputeCardinality call
func (hll *HyperLogLog) GetCardinality() uint64 {
	hll.mu.Lock()
	defer hll.mu.Unlock()

	return hll.cardinality
}
