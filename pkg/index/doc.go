// Package index implements the six B+Tree orderings (SPO, SOP, PSO, POS,
// OSP, OPS) every asserted quad is indexed under, plus bound-prefix index
// selection for triple-pattern matching. An entry is removed only to be
// replaced: retraction swaps the open entry for one with the new validTo,
// and the interval-merge correction on a duplicate assert swaps in the
// merged interval.
package index
