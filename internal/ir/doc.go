// Package ir provides the foundational value types for gridcalc.
//
// This package contains cell identities, the evaluated Value sum type and
// the canonical serialization used for state fingerprints. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - CellID is a plain comparable value, usable as a map key
//   - SheetID is a stable handle, never a sheet position
//   - Value is sealed: Number, Text, Boolean, Empty and Error only
//   - JSON tags use snake_case
package ir
