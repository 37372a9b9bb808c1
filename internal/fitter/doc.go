// Package fitter talks to the external pfsfit tool, which owns all numerical
// work: template fitting, spectrum stacking, and abundance measurement.
// Requests go to the tool as JSON on stdin; results come back as JSON on
// stdout.
package fitter
