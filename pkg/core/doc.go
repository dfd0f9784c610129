// Package core defines the shared language of the leaptable pipeline.
//
// This package contains:
//   - Column definitions and the ordered column registry
//   - Filter descriptors and the request whitelist
//   - The Engine contract implemented by every data source
//   - Typed errors surfaced by the pipeline
//
// The Golden Rule: pkg/core imports ONLY pkg/sqlq and small value libraries.
// Engines and the pipeline depend on core, not the reverse. Nothing in
// core logs.
package core
