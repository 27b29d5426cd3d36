// Package ir provides the intermediate representation shared by the stated
// compiler, engine, store and CLI.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - State order is declaration order everywhere (tuple slots, plans, reports)
//   - A Stateset never holds entries for a kind it does not support
//   - Plans serialise through MarshalCanonical so fingerprints are stable
//   - All JSON tags use snake_case
package ir
