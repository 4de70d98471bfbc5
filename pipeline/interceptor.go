package pipeline

import "context"

// Verdict is an interceptor's decision about a response.
type Verdict int

const (
	// Continue passes the response to the next interceptor.
	Continue Verdict = iota
	// Replay resubmits the whole request.
	Replay
	// Stop ends the chain; the response is returned to the caller.
	Stop
)

func (v Verdict) String() string {
	switch v {
	case Continue:
		return "continue"
	case Replay:
		return "replay"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// Interceptor inspects a response after the HTTP exchange. A returned error
// aborts the call.
type Interceptor interface {
	Handle(ctx context.Context, resp *Response) (Verdict, error)
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc func(ctx context.Context, resp *Response) (Verdict, error)

// Handle calls f.
func (f InterceptorFunc) Handle(ctx context.Context, resp *Response) (Verdict, error) {
	return f(ctx, resp)
}
