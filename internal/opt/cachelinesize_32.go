//go:build fairlock_cachelinesize_32

package opt

// CacheLineSize is forced via the fairlock_cachelinesize_32 build tag.
const CacheLineSize uintptr = 32
