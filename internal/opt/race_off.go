//go:build !race

package opt

const Race = false
