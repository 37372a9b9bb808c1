// Package pipeline executes an ordered, possibly nested tree of named steps
// against one shared context. Steps run sequentially on a single goroutine;
// control flow is expressed through result flags (skip remaining siblings,
// skip own substeps) and a critical flag that escalates failure into the
// exception path. Failures are contained at the engine boundary and collected
// in a run-level exception log for postmortem inspection.
package pipeline
