// Package gapipe implements the Galactic Archaeology spectrum processing
// pipeline: per-object orchestration of validation, product loading, radial
// velocity fitting, co-addition, abundance fitting, and output assembly. The
// numerical work happens in an external fitting tool; this package prepares
// inputs, sequences the steps, and persists the results.
package gapipe
