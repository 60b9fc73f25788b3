// Package qstore wraps the atom dictionary, B+Tree index set, and pager
// into the bitemporal assert/retract/query API: Assert merges overlapping
// intervals on a duplicate (subject, predicate, object, graph); Query,
// QueryAsOf, and QueryBetween each choose the index ordering with the
// longest bound prefix and filter by a temporal predicate as they stream.
package qstore
