package storage

import (
	"hash/fnv"
	"math"
	"sync"
)

const (
	// prestoDenseBits is the register width kept in the dense array
	prestoDenseBits = 4
	// prestoDenseMax is the largest value a dense register can hold
	prestoDenseMax = (1 << prestoDenseBits) - 1
)

// HyperLogLogPresto is a space-optimized estimator variant. Buckets count
// the run of trailing zero bits in the key hash instead of leading ones.
// Each bucket stores 4 bits densely; the rare counts above 15 spill their
// upper 3 bits into a sparse overflow map.
type HyperLogLogPresto struct {
	dense       []uint8
	overflow    map[uint16]uint8
	indexBits   uint8
	cardinality uint64
	mu          sync.Mutex
}

// NewHyperLogLogPresto creates an estimator with 2^nBits buckets.
// Negative nBits is clamped to 0.
func NewHyperLogLogPresto(nBits int) *HyperLogLogPresto {
	if nBits < 0 {
		nBits = 0
	}
	if nBits > 16 {
		nBits = 16
	}

	return &HyperLogLogPresto{
		dense:     make([]uint8, 1<<nBits),
		overflow:  make(map[uint16]uint8),
		indexBits: uint8(nBits),
	}
}

// Add hashes a key and feeds it to the estimator
func (hll *HyperLogLogPresto) Add(key []byte) {
	h := fnv.New64a()
	h.Write(key)
	hll.AddHash(mixHash(h.Sum64()))
}

// AddUint64 feeds an integer key to the estimator.
// Integer keys are used as their own hash.
func (hll *HyperLogLogPresto) AddUint64(val uint64) {
	hll.AddHash(val)
}

// AddHash feeds a precomputed 64-bit key hash to the estimator
func (hll *HyperLogLogPresto) AddHash(hash uint64) {
	hll.mu.Lock()
	defer hll.mu.Unlock()

	index := uint16((hash >> (hllHashBits - uint(hll.indexBits))) & ((1 << hll.indexBits) - 1))
	value := hll.trailingZeroRun(hash)

	if value <= hll.bucketValue(index) {
		return
	}

	hll.dense[index] = value & prestoDenseMax
	if value > prestoDenseMax {
		hll.overflow[index] = value >> prestoDenseBits
	}
}

// trailingZeroRun counts zero bits from the LSB up to the first one bit,
// looking only at the bits below the bucket index
func (hll *HyperLogLogPresto) trailingZeroRun(hash uint64) uint8 {
	valueBits := uint(hllHashBits) - uint(hll.indexBits)
	var run uint8
	for i := uint(0); i < valueBits; i++ {
		if hash&(1<<i) != 0 {
			break
		}
		run++
	}
	return run
}

// bucketValue reassembles a bucket count from its dense and overflow parts
func (hll *HyperLogLogPresto) bucketValue(index uint16) uint8 {
	value := hll.dense[index]
	if high, ok := hll.overflow[index]; ok {
		value |= high << prestoDenseBits
	}
	return value
}

// ComputeCardinality recomputes the estimate from the current buckets
func (hll *HyperLogLogPresto) ComputeCardinality() {
	hll.mu.Lock()
	defer hll.mu.Unlock()

	m := float64(len(hll.dense))
	sum := 0.0
	for i := range hll.dense {
		sum += math.Pow(2, -float64(hll.bucketValue(uint16(i))))
	}

	hll.cardinality = uint64(math.Floor(hllAlpha * m * m / sum))
}

// GetCardinality returns the estimate from the last ComputeCardinality call
func (hll *HyperLogLogPresto) GetCardinality() uint64 {
	hll.mu.Lock()
	defer hll.mu.Unlock()

	return hll.cardinality
}
