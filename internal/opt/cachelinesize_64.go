//go:build fairlock_cachelinesize_64

package opt

// CacheLineSize is forced via the fairlock_cachelinesize_64 build tag.
const CacheLineSize uintptr = 64
