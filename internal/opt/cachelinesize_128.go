//go:build fairlock_cachelinesize_128

package opt

// CacheLineSize is forced via the fairlock_cachelinesize_128 build tag.
const CacheLineSize uintptr = 128
