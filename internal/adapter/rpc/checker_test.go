package rpc

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chainlist-prober/internal/config"
	"chainlist-prober/internal/domain/entity"
	"chainlist-prober/internal/pkg/apperrors"
)

type stubResolver struct {
	ips   []net.IP
	err   error
	delay time.Duration
	calls atomic.Int32
	hosts chan string
}

func (r *stubResolver) LookupIP(ctx context.Context, network, host string) ([]net.IP, error) {
	r.calls.Add(1)
	if r.hosts != nil {
		r.hosts <- network + "|" + host
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	return r.ips, r.err
}

func testConfig() config.CheckerConfig {
	return config.CheckerConfig{
		ConnectTimeout: 500 * time.Millisecond,
		RPCTimeout:     500 * time.Millisecond,
		DNSTimeout:     100 * time.Millisecond,
	}
}

// rpcServer answers HEAD with 200 and POST with the given status and body.
func rpcServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusOK)
			return
		}
		payload, _ := io.ReadAll(r.Body)
		if string(payload) != string(checkPayload) || r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":-32600,"message":"bad request"}}`))
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestValidateBlockNumberResponse(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{name: "hex result", body: `{"result":"0x1a2b"}`, want: "0x1a2b"},
		{name: "full envelope", body: `{"jsonrpc":"2.0","id":1,"result":"0xABCdef"}`, want: "0xABCdef"},
		{name: "missing prefix", body: `{"result":"1a2b"}`, wantErr: true},
		{name: "numeric result", body: `{"result":123}`, wantErr: true},
		{name: "null result", body: `{"result":null}`, wantErr: true},
		{name: "bare prefix", body: `{"result":"0x"}`, wantErr: true},
		{name: "non-hex digits", body: `{"result":"0x12g4"}`, wantErr: true},
		{name: "missing result", body: `{"jsonrpc":"2.0","id":1}`, wantErr: true},
		{name: "json-rpc error", body: `{"error":{"code":-32601,"message":"method not found"}}`, wantErr: true},
		{name: "non-JSON", body: `<html>bad gateway</html>`, wantErr: true},
		{name: "empty", body: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateBlockNumberResponse([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperrors.ErrExternalServiceFailure))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProbe_WorkingEndpointWithIPv6(t *testing.T) {
	srv := rpcServer(t, http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":"0x10d4f"}`)
	resolver := &stubResolver{ips: []net.IP{net.ParseIP("2001:db8::1")}, hosts: make(chan string, 1)}
	checker := NewChecker(testConfig(), zap.NewNop(), WithResolver(resolver))

	outcome := checker.Probe(context.Background(), entity.RPCURL(srv.URL))

	assert.True(t, outcome.Reachable)
	assert.True(t, outcome.RPCValid)
	assert.True(t, outcome.Working())
	assert.True(t, outcome.SupportsIPv6)
	assert.Equal(t, "0x10d4f", outcome.BlockNumber)
	assert.Equal(t, entity.ProtocolHTTP, outcome.Protocol)
	assert.Equal(t, "ip6|127.0.0.1", <-resolver.hosts)
}

func TestProbe_HTTPStatusIsNotRequired(t *testing.T) {
	srv := rpcServer(t, http.StatusInternalServerError, `{"result":"0x1"}`)
	checker := NewChecker(testConfig(), zap.NewNop(), WithResolver(&stubResolver{}))

	outcome := checker.Probe(context.Background(), entity.RPCURL(srv.URL))
	assert.True(t, outcome.Working())
}

func TestProbe_InvalidRPCResponses(t *testing.T) {
	for _, body := range []string{`{"result":"1a2b"}`, `{"result":123}`, `not json at all`} {
		t.Run(body, func(t *testing.T) {
			srv := rpcServer(t, http.StatusOK, body)
			resolver := &stubResolver{ips: []net.IP{net.ParseIP("2001:db8::1")}}
			checker := NewChecker(testConfig(), zap.NewNop(), WithResolver(resolver))

			outcome := checker.Probe(context.Background(), entity.RPCURL(srv.URL))
			assert.True(t, outcome.Reachable)
			assert.False(t, outcome.RPCValid)
			assert.False(t, outcome.Working())
			assert.Equal(t, entity.StageRPC, outcome.FailedStage())
			assert.Zero(t, resolver.calls.Load(), "IPv6 stage must not run after a failed RPC stage")
		})
	}
}

func TestProbe_ConnectivityFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	deadURL := srv.URL
	srv.Close()

	resolver := &stubResolver{ips: []net.IP{net.ParseIP("2001:db8::1")}}
	checker := NewChecker(testConfig(), zap.NewNop(), WithResolver(resolver))

	outcome := checker.Probe(context.Background(), entity.RPCURL(deadURL))
	assert.False(t, outcome.Reachable)
	assert.False(t, outcome.Working())
	assert.Equal(t, entity.StageConnectivity, outcome.FailedStage())
	assert.Zero(t, resolver.calls.Load())
}

func TestProbe_RPCTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig()
	cfg.RPCTimeout = 50 * time.Millisecond
	checker := NewChecker(cfg, zap.NewNop(), WithResolver(&stubResolver{}))

	start := time.Now()
	outcome := checker.Probe(context.Background(), entity.RPCURL(srv.URL))
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, outcome.Reachable)
	assert.False(t, outcome.RPCValid)
}

func TestProbe_MalformedURLs(t *testing.T) {
	resolver := &stubResolver{ips: []net.IP{net.ParseIP("2001:db8::1")}}
	checker := NewChecker(testConfig(), zap.NewNop(), WithResolver(resolver))

	for _, raw := range []string{"", "not a url", "ftp://rpc.example.org", "https://", "://%%%"} {
		outcome := checker.Probe(context.Background(), entity.RPCURL(raw))
		assert.False(t, outcome.Working(), raw)
		assert.Equal(t, entity.RPCURL(raw), outcome.URL)
	}
	assert.Zero(t, resolver.calls.Load())
}

func TestProbe_IPv6Flag(t *testing.T) {
	srv := rpcServer(t, http.StatusOK, `{"result":"0x1"}`)

	tests := []struct {
		name     string
		resolver *stubResolver
		want     bool
	}{
		{name: "aaaa record", resolver: &stubResolver{ips: []net.IP{net.ParseIP("2606:4700::6810:84e5")}}, want: true},
		{name: "no records", resolver: &stubResolver{}, want: false},
		{name: "only ipv4", resolver: &stubResolver{ips: []net.IP{net.ParseIP("192.0.2.1")}}, want: false},
		{name: "lookup error", resolver: &stubResolver{err: &net.DNSError{Err: "no such host", IsNotFound: true}}, want: false},
		{name: "lookup timeout", resolver: &stubResolver{ips: []net.IP{net.ParseIP("2001:db8::1")}, delay: 400 * time.Millisecond}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewChecker(testConfig(), zap.NewNop(), WithResolver(tt.resolver))
			outcome := checker.Probe(context.Background(), entity.RPCURL(srv.URL))
			require.True(t, outcome.Working(), "IPv6 result must never fail the probe")
			assert.Equal(t, tt.want, outcome.SupportsIPv6)
		})
	}
}

func TestProbe_WebSocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, msg, err := conn.ReadMessage()
		if err != nil || !strings.Contains(string(msg), "eth_blockNumber") {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"jsonrpc":"2.0","id":1,"result":"0xbeef"}`))
	}))
	t.Cleanup(srv.Close)
	wsURL := entity.RPCURL("ws" + strings.TrimPrefix(srv.URL, "http"))

	t.Run("disabled", func(t *testing.T) {
		checker := NewChecker(testConfig(), zap.NewNop(), WithResolver(&stubResolver{}))
		outcome := checker.Probe(context.Background(), wsURL)
		assert.False(t, outcome.Working())
		assert.Equal(t, entity.ProtocolWS, outcome.Protocol)
	})

	t.Run("enabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.WebSocket = true
		checker := NewChecker(cfg, zap.NewNop(), WithResolver(&stubResolver{ips: []net.IP{net.ParseIP("::1")}}))
		outcome := checker.Probe(context.Background(), wsURL)
		assert.True(t, outcome.Working())
		assert.True(t, outcome.SupportsIPv6)
		assert.Equal(t, "0xbeef", outcome.BlockNumber)
	})
}

func TestProbe_CancelledContext(t *testing.T) {
	srv := rpcServer(t, http.StatusOK, `{"result":"0x1"}`)
	checker := NewChecker(testConfig(), zap.NewNop(), WithResolver(&stubResolver{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := checker.Probe(ctx, entity.RPCURL(srv.URL))
	assert.False(t, outcome.Working())
}
