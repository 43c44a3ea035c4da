package lsp

import (
	"context"
	"encoding/json"

	"juvixmode/internal/trace"
)

// goRequest answers msg from a new goroutine with the result of fn. The
// request can be cancelled with $/cancelRequest; a cancelled request is
// answered with RequestCancelled whatever fn returned. Other failures are
// shown to the user and answered with RequestFailed.
func (s *Server) goRequest(msg *rpcMessage, fn func(ctx context.Context) (any, error)) error {
	id := append(json.RawMessage(nil), msg.ID...)
	key := string(id)
	method := msg.Method
	ctx, cancel := context.WithCancel(s.context())
	ctx = trace.WithTracer(ctx, s.tracer)
	s.mu.Lock()
	if prev := s.inflight[key]; prev != nil {
		prev()
	}
	s.inflight[key] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inflight, key)
			s.mu.Unlock()
			cancel()
		}()
		ctx, span := trace.StartSpan(ctx, trace.ScopeRequest, method)
		result, err := fn(ctx)
		var sendErr error
		switch {
		case ctx.Err() != nil:
			span.End("cancelled")
			sendErr = s.sendError(id, codeRequestCancelled, "request cancelled")
		case err != nil:
			span.Fail(err)
			s.showMessage(messageError, err.Error())
			sendErr = s.sendError(id, codeRequestFailed, err.Error())
		default:
			span.End("")
			sendErr = s.sendResponse(id, result)
		}
		if sendErr != nil {
			s.logf("failed to answer %s: %v", method, sendErr)
		}
	}()
	return nil
}
