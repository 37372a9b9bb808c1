// Package filter implements typed value and range matchers used to select
// data products by the identity parameters embedded in their file names.
//
// Filters are populated from command-line style tokens of the form "123" or
// "123-127", test candidate values for membership, and render glob-pattern
// fragments for file-system discovery. An empty filter is a wildcard that
// matches everything.
package filter
