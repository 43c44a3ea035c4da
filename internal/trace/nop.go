package trace

// Nop is the shared disabled tracer.
var Nop Tracer = nopTracer{}

// nopTracer is a no-op implementation for zero overhead when tracing is disabled.
type nopTracer struct{}

func (nopTracer) Emit(*Event)  {}
func (nopTracer) Flush() error { return nil }
func (nopTracer) Close() error { return nil }
func (nopTracer) Level() Level { return LevelOff }
func (nopTracer) Enabled() bool {
	return false
}
