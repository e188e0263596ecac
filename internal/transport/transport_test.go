package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func echoHandler(ctx CallContext, req Request) Response {
	return NewResult(req.ID, map[string]string{"echo": req.Method})
}

func TestStdioTransport_Serve_OneRequestPerLine(t *testing.T) {
	in := bytes.NewBufferString(`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n")
	var out bytes.Buffer

	tr := NewStdioTransport(in, &out, zap.NewNop().Sugar())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := tr.Serve(ctx, echoHandler)
	assert.NoError(t, err, "Serve returns nil on clean EOF")

	scanner := bufio.NewScanner(&out)
	require.True(t, scanner.Scan())
	var resp Response
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
	assert.Nil(t, resp.Error)
}

func TestStdioTransport_Serve_MalformedLineReturnsValidationError(t *testing.T) {
	in := bytes.NewBufferString(`{not json` + "\n")
	var out bytes.Buffer
	tr := NewStdioTransport(in, &out, zap.NewNop().Sugar())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = tr.Serve(ctx, echoHandler)

	scanner := bufio.NewScanner(&out)
	require.True(t, scanner.Scan())
	var resp Response
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "validation", resp.Error.Code)
}

func TestDetectTransport_FlagWinsOverEnv(t *testing.T) {
	mode, ok := DetectTransport("http", "stdio")
	require.True(t, ok)
	assert.Equal(t, ModeHTTP, mode)
}

func TestDetectTransport_FallsBackToEnvThenDefault(t *testing.T) {
	mode, ok := DetectTransport("", "http")
	require.True(t, ok)
	assert.Equal(t, ModeHTTP, mode)

	mode, ok = DetectTransport("", "")
	require.True(t, ok)
	assert.Equal(t, ModeStdio, mode)
}

func TestDetectTransport_RejectsUnknownValue(t *testing.T) {
	_, ok := DetectTransport("websocket", "")
	assert.False(t, ok)
}

func TestNewResultAndNewError(t *testing.T) {
	id := json.RawMessage(`7`)
	result := NewResult(id, "ok")
	assert.Equal(t, "ok", result.Result)
	assert.Nil(t, result.Error)

	errResp := NewError(id, "validation", "bad input", nil)
	require.NotNil(t, errResp.Error)
	assert.Equal(t, "validation", errResp.Error.Code)
}
