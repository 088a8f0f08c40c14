package entity

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainlist-prober/internal/pkg/apperrors"
)

func TestRPCURLParse(t *testing.T) {
	tests := []struct {
		name     string
		url      RPCURL
		protocol Protocol
		host     string
		wantErr  bool
	}{
		{name: "https", url: "https://rpc.example.org/v1", protocol: ProtocolHTTPS, host: "rpc.example.org"},
		{name: "http with port", url: "http://127.0.0.1:8545", protocol: ProtocolHTTP, host: "127.0.0.1"},
		{name: "ipv6 literal", url: "http://[::1]:8545", protocol: ProtocolHTTP, host: "::1"},
		{name: "wss", url: "wss://ws.example.org", protocol: ProtocolWSS, host: "ws.example.org"},
		{name: "empty", url: "  ", wantErr: true},
		{name: "no scheme", url: "rpc.example.org", wantErr: true},
		{name: "unsupported scheme", url: "ftp://rpc.example.org", wantErr: true},
		{name: "no host", url: "https://", protocol: ProtocolHTTPS, wantErr: true},
		{name: "garbage", url: "://%%%", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			protocol, host, err := tt.url.Parse()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
				assert.Empty(t, tt.url.Hostname())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.protocol, protocol)
			assert.Equal(t, tt.host, host)
			assert.Equal(t, tt.host, tt.url.Hostname())
		})
	}
}

func TestChainResultMarshalsEmptyRPCsAsArray(t *testing.T) {
	data, err := json.Marshal(ChainResult{Name: "Test", ChainID: 7})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Test","chainId":7,"rpcs":[]}`, string(data))

	data, err = json.Marshal(ChainResult{Name: "Test", ChainID: 7, RPCs: []WorkingRPC{{URL: "https://a", SupportsIPv6: true}}})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Test","chainId":7,"rpcs":[{"url":"https://a","supportsIpv6":true}]}`, string(data))
}

func TestProbeOutcomeStages(t *testing.T) {
	assert.Equal(t, StageConnectivity, ProbeOutcome{}.FailedStage())
	assert.Equal(t, StageRPC, ProbeOutcome{Reachable: true}.FailedStage())

	ok := ProbeOutcome{URL: "https://a", Reachable: true, RPCValid: true, SupportsIPv6: true}
	assert.True(t, ok.Working())
	assert.Empty(t, ok.FailedStage())
	assert.Equal(t, WorkingRPC{URL: "https://a", SupportsIPv6: true}, ok.WorkingRPC())
}

func TestMergedResultSetKeepsInsertionOrder(t *testing.T) {
	set := NewMergedResultSet()
	for _, id := range []int64{10, 1, 56} {
		record, err := NewChainRecord(ChainResult{Name: "c", ChainID: id})
		require.NoError(t, err)
		set.Put(record)
	}
	set.Put(ChainRecord{Result: ChainResult{ChainID: 1}, Raw: json.RawMessage(`{"custom":true}`)})

	assert.Equal(t, 3, set.Len())
	assert.Equal(t, []string{"10", "1", "56"}, set.Keys())

	data, err := json.Marshal(set)
	require.NoError(t, err)
	assert.Equal(t,
		`{"10":{"name":"c","chainId":10,"rpcs":[]},"1":{"custom":true},"56":{"name":"c","chainId":56,"rpcs":[]}}`,
		string(data),
	)

	decoded := NewMergedResultSet()
	require.NoError(t, json.Unmarshal(data, decoded))
	assert.Equal(t, set.Keys(), decoded.Keys())

	raw, ok := decoded.Get(1)
	require.True(t, ok)
	assert.JSONEq(t, `{"custom":true}`, string(raw))

	_, ok = decoded.Get(2)
	assert.False(t, ok)
}

func TestMergedResultSetRejectsNonObject(t *testing.T) {
	set := NewMergedResultSet()
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), set))
}
