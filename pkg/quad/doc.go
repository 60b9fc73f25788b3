// Package quad defines the bitemporal RDF data model shared by the storage
// engine and the query layer: interned Terms and AtomIDs, the AtomQuad and
// Pattern types indices are built from, and the positional BindingTable
// rows joins and projections operate on.
package quad
