package utils

import (
	"github.com/zeebo/xxh3"
)

func Hash(s string) uint64 {
	return xxh3.HashString(s)
}

// HashString32 folds the 64-bit hash of s for the LRU hash callbacks.
func HashString32(s string) uint32 {
	h := Hash(s)
	return uint32(h ^ (h >> 32))
}
