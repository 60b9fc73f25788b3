// Package rdfio implements the streaming parse substrate (C7) shared by the
// Turtle, TriG, N-Triples, and N-Quads grammars, plus the canonical
// N-Quads/N-Triples writer. The scaffold tracks (line, column) over a
// refilling byte buffer, exposes peek/consume primitives and RFC 3986 IRI
// resolution, and hands each parsed quad to a caller-supplied handler whose
// spans are valid only for the duration of the call.
package rdfio
