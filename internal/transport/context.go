package transport

import "context"

// CallContext carries the request-scoped context.Context a Handler needs;
// it is an alias of context.Context, so transports can attach transport-specific
// values (e.g. the presented credential) without widening the Handler
// signature.
type CallContext = context.Context
