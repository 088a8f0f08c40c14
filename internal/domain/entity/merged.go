package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// MergedResultSet maps chain-ID strings to per-chain documents in insertion order.
// Entries are never removed. It is not safe for concurrent use.
type MergedResultSet struct {
	keys    []string
	entries map[string]json.RawMessage
}

// NewMergedResultSet creates an empty set.
func NewMergedResultSet() *MergedResultSet {
	return &MergedResultSet{entries: make(map[string]json.RawMessage)}
}

// Put inserts the record under its chain ID. Re-inserting a key replaces the
// document but keeps the original position.
func (m *MergedResultSet) Put(record ChainRecord) {
	key := strconv.FormatInt(record.Result.ChainID, 10)
	if _, exists := m.entries[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.entries[key] = record.Raw
}

// Get returns the raw document stored for the chain ID.
func (m *MergedResultSet) Get(chainID int64) (json.RawMessage, bool) {
	raw, ok := m.entries[strconv.FormatInt(chainID, 10)]
	return raw, ok
}

// Len returns the number of chains in the set.
func (m *MergedResultSet) Len() int {
	return len(m.keys)
}

// Keys returns the chain-ID keys in insertion order.
func (m *MergedResultSet) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// MarshalJSON encodes the set as a JSON object whose keys keep insertion order.
func (m *MergedResultSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		raw := m.entries[key]
		if len(raw) == 0 {
			raw = json.RawMessage("null")
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving the document's key order.
func (m *MergedResultSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("merged results must be a JSON object, got %v", tok)
	}

	m.keys = nil
	m.entries = make(map[string]json.RawMessage)
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected merged results key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("failed to decode merged entry %q: %w", key, err)
		}
		if _, exists := m.entries[key]; !exists {
			m.keys = append(m.keys, key)
		}
		m.entries[key] = raw
	}
	_, err = dec.Token()
	return err
}
