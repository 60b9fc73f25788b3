// Package lang implements the SPARQL parser: a single-pass, source
// to compact-pattern-buffer translator. The parser writes Slot values
// left-to-right into a Query's Patterns slice; nested groups (GRAPH,
// OPTIONAL, UNION, EXISTS, NOT EXISTS, MINUS) open a header slot, parse
// their children into the slots that follow, then back-patch
// (ChildStart, ChildCount) on the header once the children are known.
//
// Per the re-architecture guidance, the 64-byte discriminated
// union described by the source design is kept as a discipline — one
// discriminator tag per slot, fixed fields, no slot holding a heap
// reference to another slot — but expressed as an ordinary Go struct in a
// typed slice rather than a reinterpreted byte buffer; the borrow checker
// has no equivalent in Go, so FILTER/BIND expression text is referenced by
// (start, length) into the original source and re-parsed once during plan
// construction rather than per row.
package lang
