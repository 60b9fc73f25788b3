package lang

// TokenKind identifies the lexical class of a single SPARQL token. Modeled
// on a T-SQL lexer's flat token-constant block (one enum, special tokens
// first, then operators/delimiters, then keywords recognized by a
// case-insensitive lookup table), adapted to SPARQL 1.1's grammar.
type TokenKind int

const (
	ILLEGAL TokenKind = iota
	EOF

	// Identifiers and literals
	VAR      // ?x or $x
	IRIREF   // <http://...>
	PNAME_NS // prefix:
	PNAME_LN // prefix:local
	BLANK_NODE_LABEL
	STRING
	INTEGER
	DECIMAL
	DOUBLE
	BOOLEAN

	// Punctuation
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET
	DOT
	COMMA
	SEMICOLON
	PIPE // |
	SLASH
	CARET
	BANG
	PLUS
	MINUS
	STAR
	EQ
	NE
	LT
	GT
	LE
	GE
	AND
	OR
	ASSIGN // AS

	keywordBeg
	SELECT
	CONSTRUCT
	ASK
	DESCRIBE
	WHERE
	DISTINCT
	REDUCED
	FROM
	NAMED
	PREFIX
	BASE
	OPTIONAL
	UNION
	MINUS_KW
	GRAPH
	FILTER
	BIND
	VALUES
	EXISTS
	NOT
	ORDER
	BY
	GROUP
	HAVING
	LIMIT
	OFFSET
	ASC
	DESC
	AS
	A // rdf:type keyword shorthand
	UNDEF
	BETWEEN
	COUNT
	SUM
	AVG
	MIN
	MAX
	SAMPLE
	GROUP_CONCAT
	SEPARATOR_KW
	BOUND
	STR
	LANG
	LANGMATCHES
	DATATYPE
	IRI_FUNC
	URI_FUNC
	ISIRI
	ISBLANK
	ISLITERAL
	ISNUMERIC
	REGEX
	CONCAT_FUNC
	STRLEN
	SAMETERM
	INSERT
	DELETE
	DATA
	CLEAR
	DROP
	COPY
	MOVE
	ADD
	ALL
	DEFAULT
	SILENT
	TO
	keywordEnd
)

var keywords = map[string]TokenKind{
	"SELECT": SELECT, "CONSTRUCT": CONSTRUCT, "ASK": ASK, "DESCRIBE": DESCRIBE,
	"WHERE": WHERE, "DISTINCT": DISTINCT, "REDUCED": REDUCED,
	"FROM": FROM, "NAMED": NAMED, "OPTIONAL": OPTIONAL, "UNION": UNION,
	"MINUS": MINUS_KW, "GRAPH": GRAPH, "FILTER": FILTER, "BIND": BIND,
	"VALUES": VALUES, "EXISTS": EXISTS, "NOT": NOT,
	"ORDER": ORDER, "BY": BY, "GROUP": GROUP, "HAVING": HAVING,
	"LIMIT": LIMIT, "OFFSET": OFFSET, "ASC": ASC, "DESC": DESC, "AS": AS,
	"UNDEF": UNDEF, "BETWEEN": BETWEEN, "AND": AND,
	"COUNT": COUNT, "SUM": SUM, "AVG": AVG, "MIN": MIN, "MAX": MAX,
	"SAMPLE": SAMPLE, "GROUP_CONCAT": GROUP_CONCAT, "SEPARATOR": SEPARATOR_KW,
	"BOUND": BOUND, "STR": STR, "LANG": LANG, "LANGMATCHES": LANGMATCHES,
	"DATATYPE": DATATYPE, "IRI": IRI_FUNC, "URI": URI_FUNC,
	"ISIRI": ISIRI, "ISURI": ISIRI, "ISBLANK": ISBLANK, "ISLITERAL": ISLITERAL,
	"ISNUMERIC": ISNUMERIC, "REGEX": REGEX, "CONCAT": CONCAT_FUNC,
	"STRLEN": STRLEN, "SAMETERM": SAMETERM,
	"INSERT": INSERT, "DELETE": DELETE, "DATA": DATA, "CLEAR": CLEAR,
	"DROP": DROP, "COPY": COPY, "MOVE": MOVE, "ADD": ADD, "ALL": ALL,
	"DEFAULT": DEFAULT, "SILENT": SILENT, "TO": TO,
	// PREFIX/BASE: case-insensitive per the directive rule for the
	// SPARQL spellings (distinct from Turtle's case-sensitive @prefix).
	"PREFIX": PREFIX, "BASE": BASE,
}

// lookupKeyword returns the keyword token and true for an upper-cased
// identifier, or the zero TokenKind (ILLEGAL) and false when it is not a
// keyword; callers then treat it as a PN_LOCAL-shaped identifier.
func lookupKeyword(upper string) (TokenKind, bool) {
	k, ok := keywords[upper]
	return k, ok
}

// Token is one lexed unit: its kind, the exact source text it spans, and
// its byte offset (used to build (start, length) references for FILTER/
// BIND expression re-parsing and for diagnostics).
type Token struct {
	Kind  TokenKind
	Text  string
	Start int
	Line  int
	Col   int
}
