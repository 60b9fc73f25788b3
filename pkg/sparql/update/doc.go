// Package update implements the SPARQL 1.1 Update executor:
// INSERT DATA/DELETE DATA, DELETE/INSERT ... WHERE, CLEAR/DROP/ADD/MOVE/
// COPY, run against a *qstore.Store as a single write transaction —
// on any operation's error, no prior effect is visible.
//
// Parsing (source text to lang.UpdateRequest) happens in
// pkg/sparql/lang/update.go; this package only executes an already-parsed
// request, the same split as pkg/sparql/engine does for queries.
package update
