// Package params captures marketing attribution parameters from a visitor's
// address, keeps them in a session-scoped store, and re-attaches them to
// outgoing links.
//
// A [Set] is a schema-less mapping of query keys to values. Conventional keys
// such as [UTMSource] or [GCLID] are listed as constants for documentation
// only; any key found on the address is retained.
//
// The typical page-load flow is:
//
//	ps := params.New(sessionStore, params.WithLogger(logger))
//	all := ps.ReadAll(r.URL) // persisted set, overridden by the address
//	ps.Persist(all)
//
//	next, err := params.BuildAddress("/up1", origin, all.With("source", "hamburger_menu"))
//
// Storage failures never reach the caller: [ParamStore.Persist] logs and
// returns, [ParamStore.ReadPersisted] degrades to an empty set. Losing
// tracking data is preferred over breaking navigation.
//
// Address parameters always override persisted ones, so a fresh campaign
// click is never shadowed by an older click from the same session. Persisted
// parameters are kept for the lifetime of the session with no expiry of
// their own.
package params
