// Package dict maps canonical RDF term strings to 64-bit atom ids and
// back. The dictionary is append-only for the lifetime of a store: once an
// atom id is assigned it is never reused or reassigned, even across the
// term's retraction, since other index entries may still reference it
// under an earlier bitemporal interval.
//
// Two reserved ids never come back from Intern: 0 (dict.ReservedInvalid)
// and 1 (dict.ReservedDefaultGraph, the sentinel occupying the graph
// position of a quad asserted outside any named graph).
package dict
