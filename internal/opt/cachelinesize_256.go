//go:build fairlock_cachelinesize_256

package opt

// CacheLineSize is forced via the fairlock_cachelinesize_256 build tag.
const CacheLineSize uintptr = 256
