package chainlist_dto

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ChainRaw represents one chain descriptor as received from the directory.
// Fields the prober does not use are ignored.
type ChainRaw struct {
	Name      string        `json:"name" yaml:"name"`
	ShortName string        `json:"shortName" yaml:"shortName"`
	ChainID   ChainIDRaw    `json:"chainId" yaml:"chainId"`
	RPC       []RPCEntryRaw `json:"rpc" yaml:"rpc"`
}

// ChainIDRaw is a chain identifier that may arrive as a number or a numeric string.
// Valid is false for anything that is not a positive integer.
type ChainIDRaw struct {
	Value int64
	Valid bool
}

// UnmarshalJSON never fails; unusable values leave the ID invalid.
func (id *ChainIDRaw) UnmarshalJSON(data []byte) error {
	*id = ChainIDRaw{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		id.set(s)
		return nil
	}
	id.set(string(data))
	return nil
}

// UnmarshalYAML never fails; unusable values leave the ID invalid.
func (id *ChainIDRaw) UnmarshalYAML(node *yaml.Node) error {
	*id = ChainIDRaw{}
	if node.Kind == yaml.ScalarNode {
		id.set(node.Value)
	}
	return nil
}

func (id *ChainIDRaw) set(s string) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v <= 0 {
		return
	}
	id.Value = v
	id.Valid = true
}

// RPCEntryRaw is an RPC entry given either as a plain URL string or as an
// object with a url field. Valid is false for any other shape.
type RPCEntryRaw struct {
	URL   string
	Valid bool
}

type rpcObjectRaw struct {
	URL *string `json:"url" yaml:"url"`
}

// UnmarshalJSON never fails; unusable entries are marked invalid.
func (e *RPCEntryRaw) UnmarshalJSON(data []byte) error {
	*e = RPCEntryRaw{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case '"':
		if err := json.Unmarshal(data, &e.URL); err == nil {
			e.Valid = true
		}
	case '{':
		var obj rpcObjectRaw
		if err := json.Unmarshal(data, &obj); err == nil && obj.URL != nil {
			e.URL = *obj.URL
			e.Valid = true
		}
	}
	return nil
}

// UnmarshalYAML never fails; unusable entries are marked invalid.
func (e *RPCEntryRaw) UnmarshalYAML(node *yaml.Node) error {
	*e = RPCEntryRaw{}
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return nil
		}
		e.URL = node.Value
		e.Valid = true
	case yaml.MappingNode:
		var obj rpcObjectRaw
		if err := node.Decode(&obj); err == nil && obj.URL != nil {
			e.URL = *obj.URL
			e.Valid = true
		}
	}
	return nil
}
