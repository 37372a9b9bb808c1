// Package services defines shared utilities consumed by the pipeline steps
// and the repository layer.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, object identities, and step
//     names for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (configuration vs lookup vs transient) uniform across
//     the pipeline.
//
// Use these helpers when wiring new step logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
