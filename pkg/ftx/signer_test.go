package ftx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSignerMissingCredentials(t *testing.T) {
	_, err := NewSigner("", "secret")
	require.ErrorIs(t, err, ErrMissingCredentials)

	_, err = NewSigner("key", "")
	require.ErrorIs(t, err, ErrMissingCredentials)
}

func TestSignRequestGet(t *testing.T) {
	s, err := NewSigner("key", "secret")
	require.NoError(t, err)

	header := s.SignRequestAt(1588591511721, "GET", "/api/markets", nil)
	assert.Equal(t, "key", header.Get(HeaderKey))
	assert.Equal(t, "1588591511721", header.Get(HeaderTimestamp))
	assert.Equal(t, "01b647b352735eacafe8455358b4fcd4225fdd8e4e0f9d85b9c249046bc3b531", header.Get(HeaderSign))
	assert.Empty(t, header.Get("Content-Type"))
}

func TestSignRequestWithBody(t *testing.T) {
	s, err := NewSigner("key", "secret")
	require.NoError(t, err)

	header := s.SignRequestAt(1588591856950, "POST", "/api/orders", []byte(`{"market": "BTC-PERP"}`))
	assert.Equal(t, "ea7b8b7c351e851a293dfb0e732ce39024d889ec3f575d54e92aa4f247f0e57a", header.Get(HeaderSign))
	assert.Equal(t, "application/json", header.Get("Content-Type"))
}

func TestSignRequestUsesClock(t *testing.T) {
	s, err := NewSigner("key", "secret")
	require.NoError(t, err)
	s.now = func() time.Time { return time.UnixMilli(1588591511721) }

	header := s.SignRequest("GET", "/api/markets", nil)
	assert.Equal(t, "1588591511721", header.Get(HeaderTimestamp))
	assert.Equal(t, "01b647b352735eacafe8455358b4fcd4225fdd8e4e0f9d85b9c249046bc3b531", header.Get(HeaderSign))
}

func TestLoginFrame(t *testing.T) {
	s, err := NewSigner("key", "secret")
	require.NoError(t, err)

	frame := s.LoginFrameAt(1557246346499)
	assert.Equal(t, "login", frame.Op)
	assert.Equal(t, "key", frame.Args.Key)
	assert.Equal(t, int64(1557246346499), frame.Args.Time)
	assert.Equal(t, "b94cff7e4e8d45118550921d8a77393e5b87e26a72052a35da6972f79be26047", frame.Args.Sign)

	data, err := json.Marshal(frame)
	require.NoError(t, err)
	assert.JSONEq(t, `{"op":"login","args":{"key":"key","sign":"b94cff7e4e8d45118550921d8a77393e5b87e26a72052a35da6972f79be26047","time":1557246346499}}`, string(data))
}

func TestSignatureChangesWithEachInput(t *testing.T) {
	type input struct {
		ts     int64
		method string
		path   string
		body   string
		secret string
	}
	base := input{ts: 1588591856950, method: "POST", path: "/api/orders", body: `{"market":"BTC-PERP"}`, secret: "secret"}
	sign := func(in input) string {
		return Sign([]byte(in.secret), RequestPayload(in.ts, in.method, in.path, []byte(in.body)))
	}
	baseSig := sign(base)
	require.Equal(t, baseSig, sign(base))

	tests := []struct {
		name   string
		mutate func(in *input)
	}{
		{"method", func(in *input) { in.method = "GET" }},
		{"path", func(in *input) { in.path = "/api/orders/1" }},
		{"body", func(in *input) { in.body = `{"market":"ETH-PERP"}` }},
		{"timestamp", func(in *input) { in.ts++ }},
		{"secret", func(in *input) { in.secret = "other" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			assert.NotEqual(t, baseSig, sign(in))
		})
	}
}
