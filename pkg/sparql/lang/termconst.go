package lang

// Well-known IRIs the parser needs without a prologue PREFIX declaration:
// `a` as rdf:type, and the XSD datatypes numeric literals are implicitly
// typed with per RDF 1.1's literal-value mapping.
const (
	RDFType    = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	XSDInteger = "http://www.w3.org/2001/XMLSchema#integer"
	XSDDecimal = "http://www.w3.org/2001/XMLSchema#decimal"
	XSDDouble  = "http://www.w3.org/2001/XMLSchema#double"
	XSDBoolean = "http://www.w3.org/2001/XMLSchema#boolean"
	XSDString  = "http://www.w3.org/2001/XMLSchema#string"
)
