//go:build fairlock_trace

package fairlock

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Tracing is enabled via the fairlock_trace build tag.
// Use: go test -tags=fairlock_trace
var tracer atomic.Pointer[zap.Logger]

func init() {
	tracer.Store(zap.NewExample())
}

// SetTraceLogger replaces the logger that receives slow-path events.
// A nil logger silences tracing.
func SetTraceLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	tracer.Store(l)
}

func trace(op string, w *waiter, s lockState) {
	fields := []zap.Field{
		zap.Bool("write_held", s.writeHeld()),
		zap.Uint32("readers", s.readers()),
		zap.Uint32("queued", s.queued()),
	}
	if w != nil {
		fields = append(fields,
			zap.Uint64("waiter", w.id),
			zap.Stringer("role", w.role),
		)
	}
	tracer.Load().Debug(op, fields...)
}
