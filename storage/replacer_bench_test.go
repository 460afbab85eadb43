package storage

import (
	"fmt"
	"math/rand"
	"testing"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Fixed RNG seed for reproducibility
const benchSeed = 1

// pageCacheSim drives a Replacer the way the buffer pool does: resident
// pages are hits, misses claim a free frame or evict one. It reports the
// achieved hit rate for a given access pattern.
type pageCacheSim struct {
	replacer Replacer
	frames   map[uint32]uint32 // pageId -> frameId
	byFrame  map[uint32]uint32 // frameId -> pageId
	freeList []uint32
	hits     int
	total    int
}

func newPageCacheSim(replacer Replacer, capacity uint32) *pageCacheSim {
	freeList := make([]uint32, capacity)
	for i := range freeList {
		freeList[i] = uint32(i)
	}
	return &pageCacheSim{
		replacer: replacer,
		frames:   make(map[uint32]uint32, capacity),
		byFrame:  make(map[uint32]uint32, capacity),
		freeList: freeList,
	}
}

func (s *pageCacheSim) access(pageId uint32) {
	s.total++

	if frameId, ok := s.frames[pageId]; ok {
		s.hits++
		s.replacer.RecordAccess(frameId, AccessUnspecified)
		s.replacer.SetEvictable(frameId, true)
		return
	}

	var frameId uint32
	if len(s.freeList) > 0 {
		frameId = s.freeList[0]
		s.freeList = s.freeList[1:]
	} else {
		victim, ok := s.replacer.Evict()
		if !ok {
			return
		}
		delete(s.frames, s.byFrame[victim])
		frameId = victim
	}

	s.frames[pageId] = frameId
	s.byFrame[frameId] = pageId
	s.replacer.RecordAccess(frameId, AccessUnspecified)
	s.replacer.SetEvictable(frameId, true)
}

func (s *pageCacheSim) hitRate() float64 {
	if s.total == 0 {
		return 0
	}
	return float64(s.hits) / float64(s.total)
}

// Access patterns over a page id universe larger than the cache

func makeSequentialPattern(universe, length int) []uint32 {
	pattern := make([]uint32, length)
	for i := range pattern {
		pattern[i] = uint32(i % universe)
	}
	return pattern
}

func makeLoopingPattern(hotSet, universe, length int, hotRatio float64) []uint32 {
	rng := rand.New(rand.NewSource(benchSeed))
	pattern := make([]uint32, length)
	for i := range pattern {
		if rng.Float64() < hotRatio {
			pattern[i] = uint32(rng.Intn(hotSet))
		} else {
			pattern[i] = uint32(hotSet + rng.Intn(universe-hotSet))
		}
	}
	return pattern
}

func makeZipfPattern(universe, length int) []uint32 {
	rng := rand.New(rand.NewSource(benchSeed))
	zipf := rand.NewZipf(rng, 1.2, 1.0, uint64(universe-1))
	pattern := make([]uint32, length)
	for i := range pattern {
		pattern[i] = uint32(zipf.Uint64())
	}
	return pattern
}

func benchPatterns(capacity int) map[string][]uint32 {
	return map[string][]uint32{
		"Sequential": makeSequentialPattern(capacity*4, 1<<15),
		"Looping":    makeLoopingPattern(capacity, capacity*8, 1<<15, 0.9),
		"Zipf":       makeZipfPattern(capacity*8, 1<<15),
	}
}

// BenchmarkReplacerHitRate measures achieved cache hit rates for the
// LRU-K and plain LRU policies against hashicorp's LRU as a baseline.
func BenchmarkReplacerHitRate(b *testing.B) {
	const capacity = 512

	for patternName, pattern := range benchPatterns(capacity) {
		for _, algorithm := range []string{"lruk", "lru"} {
			b.Run(fmt.Sprintf("%s/%s", algorithm, patternName), func(b *testing.B) {
				var hitRate float64
				for i := 0; i < b.N; i++ {
					sim := newPageCacheSim(NewReplacer(algorithm, capacity, DefaultHistoryDepth), capacity)
					for _, pageId := range pattern {
						sim.access(pageId)
					}
					hitRate = sim.hitRate()
				}
				b.ReportMetric(hitRate*100, "hit%")
			})
		}

		b.Run(fmt.Sprintf("hashicorp-lru/%s", patternName), func(b *testing.B) {
			var hitRate float64
			for i := 0; i < b.N; i++ {
				cache, err := lru.New[uint32, struct{}](capacity)
				if err != nil {
					b.Fatal(err)
				}
				hits := 0
				for _, pageId := range pattern {
					if _, ok := cache.Get(pageId); ok {
						hits++
					} else {
						cache.Add(pageId, struct{}{})
					}
				}
				hitRate = float64(hits) / float64(len(pattern))
			}
			b.ReportMetric(hitRate*100, "hit%")
		})
	}
}

// BenchmarkRecordAccess measures raw policy overhead per access
func BenchmarkRecordAccess(b *testing.B) {
	const capacity = 4096

	for _, algorithm := range []string{"lruk", "lru"} {
		b.Run(algorithm, func(b *testing.B) {
			replacer := NewReplacer(algorithm, capacity, DefaultHistoryDepth)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				replacer.RecordAccess(uint32(i%capacity), AccessUnspecified)
			}
		})
	}
}

// BenchmarkEvict measures victim selection cost on a full replacer
func BenchmarkEvict(b *testing.B) {
	const capacity = 4096

	for _, algorithm := range []string{"lruk", "lru"} {
		b.Run(algorithm, func(b *testing.B) {
			replacer := NewReplacer(algorithm, capacity, DefaultHistoryDepth)
			for f := uint32(0); f < capacity; f++ {
				replacer.RecordAccess(f, AccessUnspecified)
				replacer.SetEvictable(f, true)
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				victim, ok := replacer.Evict()
				if !ok {
					b.Fatal("replacer drained")
				}
				replacer.RecordAccess(victim, AccessUnspecified)
				replacer.SetEvictable(victim, true)
			}
		})
	}
}
