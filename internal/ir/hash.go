package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for fingerprints.
// Version suffix enables future algorithm migration.
const (
	DomainState = "gridcalc/state/v1"
	DomainOrder = "gridcalc/order/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StateHash fingerprints a set of cell values. Two workbooks whose cells
// hold identical values produce the same hash regardless of map order.
func StateHash(values map[CellID]Value) (string, error) {
	obj := make(map[string]any, len(values))
	for id, v := range values {
		obj[id.String()] = EncodeValue(v)
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("StateHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainState, canonical), nil
}

// OrderHash fingerprints an evaluation order.
func OrderHash(order []CellID) (string, error) {
	arr := make([]any, len(order))
	for i, id := range order {
		arr[i] = id
	}
	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("OrderHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainOrder, canonical), nil
}
