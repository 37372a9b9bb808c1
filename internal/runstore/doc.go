// Package runstore persists pipeline runs and per-step outcomes in a SQLite
// ledger for postmortem queries. The store also implements the engine's
// trace interface so wiring it into a run records every step automatically.
package runstore
