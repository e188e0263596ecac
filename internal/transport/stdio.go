package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// StdioTransport implements the line-framed stdio transport: exactly one
// request per line on stdin, one response per line on stdout. Responses
// correlate to requests by ID, delivered in request order within this
// single connection.
type StdioTransport struct {
	in     *bufio.Scanner
	out    *bufio.Writer
	outMu  sync.Mutex
	logger *zap.SugaredLogger
}

// NewStdioTransport wraps the given reader/writer (ordinarily os.Stdin and
// os.Stdout).
func NewStdioTransport(r io.Reader, w io.Writer, logger *zap.SugaredLogger) *StdioTransport {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &StdioTransport{
		in:     scanner,
		out:    bufio.NewWriter(w),
		logger: logger,
	}
}

// Serve reads one JSON request per line until EOF or ctx is canceled,
// dispatching each to handler and writing back its response.
func (t *StdioTransport) Serve(ctx context.Context, handler Handler) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		for t.in.Scan() {
			lines <- t.in.Text()
		}
		scanErr <- t.in.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			if line == "" {
				continue
			}
			t.handleLine(ctx, handler, line)
		}
	}
}

func (t *StdioTransport) handleLine(ctx context.Context, handler Handler, line string) {
	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		t.send(NewError(nil, "validation", fmt.Sprintf("malformed request: %v", err), nil))
		return
	}
	resp := handler(ctx, req)
	t.send(resp)
}

func (t *StdioTransport) send(resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		if t.logger != nil {
			t.logger.Errorw("failed to marshal response", "error", err)
		}
		return
	}

	t.outMu.Lock()
	defer t.outMu.Unlock()
	t.out.Write(data)
	t.out.WriteByte('\n')
	t.out.Flush()
}
