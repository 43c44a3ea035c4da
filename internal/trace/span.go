package trace

import (
	"bytes"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

var (
	globalSeq   uint64
	globalSpans uint64
)

// NextSeq returns a monotonically increasing sequence number.
func NextSeq() uint64 {
	return atomic.AddUint64(&globalSeq, 1)
}

// NextSpanID returns a unique span ID.
func NextSpanID() uint64 {
	return atomic.AddUint64(&globalSpans, 1)
}

// getGoroutineID extracts the current goroutine ID using runtime.Stack.
func getGoroutineID() uint64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]

	// "goroutine 123 [running]:\n..."
	const prefix = "goroutine "
	if !bytes.HasPrefix(buf, []byte(prefix)) {
		return 0
	}

	buf = buf[len(prefix):]
	end := bytes.IndexByte(buf, ' ')
	if end < 0 {
		return 0
	}

	gid, err := strconv.ParseUint(string(buf[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return gid
}

// Span provides RAII-style span tracking.
type Span struct {
	tracer   Tracer
	id       uint64
	parentID uint64
	gid      uint64
	scope    Scope
	name     string
	started  time.Time
	visible  bool
	extra    map[string]string
}

// Begin starts a new span and emits SpanBegin event when the tracer's level
// covers scope. parent is the parent span ID (0 if root).
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Enabled() {
		return &Span{tracer: Nop}
	}

	s := &Span{
		tracer:   t,
		id:       NextSpanID(),
		parentID: parent,
		gid:      getGoroutineID(),
		scope:    scope,
		name:     name,
		started:  time.Now(),
		visible:  t.Level().ShouldEmit(scope),
	}
	if s.visible {
		t.Emit(&Event{
			Time:     s.started,
			Seq:      NextSeq(),
			Kind:     KindSpanBegin,
			Scope:    scope,
			SpanID:   s.id,
			ParentID: parent,
			GID:      s.gid,
			Name:     name,
		})
	}
	return s
}

// End emits SpanEnd event and returns the duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.tracer == nil || !s.tracer.Enabled() {
		return 0
	}

	dur := time.Since(s.started)
	if !s.visible && s.extra["error"] == "" {
		return dur
	}

	s.tracer.Emit(&Event{
		Time:     time.Now(),
		Seq:      NextSeq(),
		Kind:     KindSpanEnd,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parentID,
		GID:      s.gid,
		Name:     s.name,
		Detail:   detail,
		Elapsed:  dur,
		Extra:    s.extra,
	})

	return dur
}

// Fail ends the span recording err; failed spans are emitted at LevelError.
func (s *Span) Fail(err error) time.Duration {
	if err == nil {
		return s.End("")
	}
	s.WithExtra("error", err.Error())
	return s.End("failed")
}

// WithExtra adds a key-value pair to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s.tracer == nil || !s.tracer.Enabled() {
		return s
	}

	if s.extra == nil {
		s.extra = make(map[string]string)
	}
	s.extra[key] = value
	return s
}

// ID returns the span ID.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Point emits an instant event.
func Point(t Tracer, scope Scope, name, detail string) {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	t.Emit(&Event{
		Time:   time.Now(),
		Seq:    NextSeq(),
		Kind:   KindPoint,
		Scope:  scope,
		SpanID: NextSpanID(),
		GID:    getGoroutineID(),
		Name:   name,
		Detail: detail,
	})
}
