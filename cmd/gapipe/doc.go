// Command gapipe runs the Galactic Archaeology pipeline for single objects
// and inspects its products and run ledger.
package main
