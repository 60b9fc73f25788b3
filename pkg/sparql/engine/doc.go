// Package engine evaluates a parsed SPARQL query (pkg/sparql/lang) against
// a quad store: it matches graph patterns via index-nested-loop joins,
// applies OPTIONAL/UNION/MINUS/FILTER/BIND/VALUES/GRAPH/EXISTS operators,
// aggregates and orders solutions, and shapes the result for SELECT, ASK,
// CONSTRUCT, and DESCRIBE.
//
// Binding rows follow pkg/quad's flat, positional BindingTable rather than
// a map keyed by variable name: columns grow as new variables are
// discovered while a pattern is matched, and joins merge two tables by
// variable name into a new, wider table.
package engine
