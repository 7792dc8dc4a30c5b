package mutation

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// MarshalPass serialises a Pass to JSON.
func MarshalPass(p *Pass) ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalPass deserialises a Pass from JSON.
func UnmarshalPass(data []byte) (*Pass, error) {
	var p Pass
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// MarshalRecords serialises records for replay in a live page.
func MarshalRecords(recs []Record) ([]byte, error) {
	if recs == nil {
		recs = []Record{}
	}
	return json.Marshal(recs)
}

// HashHTML returns the SHA-256 hex digest of raw HTML bytes.
func HashHTML(html []byte) string {
	h := sha256.Sum256(html)
	return fmt.Sprintf("%x", h)
}
