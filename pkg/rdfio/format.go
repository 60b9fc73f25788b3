package rdfio

import (
	"sort"
	"strconv"
	"strings"
)

// Format identifies an RDF serialization, per the content-type mapping.
type Format int

const (
	Unknown Format = iota
	Turtle
	NTriples
	NQuads
	TriG
	RdfXml
	JsonLd
)

func (f Format) String() string {
	switch f {
	case Turtle:
		return "Turtle"
	case NTriples:
		return "NTriples"
	case NQuads:
		return "NQuads"
	case TriG:
		return "TriG"
	case RdfXml:
		return "RdfXml"
	case JsonLd:
		return "JsonLd"
	default:
		return "Unknown"
	}
}

var contentTypeToFormat = map[string]Format{
	"text/turtle":          Turtle,
	"application/n-triples": NTriples,
	"application/n-quads":   NQuads,
	"application/trig":      TriG,
	"application/rdf+xml":   RdfXml,
	"application/ld+json":   JsonLd,
	"text/plain":            NTriples,
	"application/xml":       RdfXml,
}

// FormatFromContentType maps a MIME type (ignoring any ";charset=..."
// parameter) to a Format, returning Unknown for anything not in the table.
func FormatFromContentType(contentType string) Format {
	ct := contentType
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	ct = strings.ToLower(strings.TrimSpace(ct))
	if f, ok := contentTypeToFormat[ct]; ok {
		return f
	}
	return Unknown
}

// acceptCandidate is one weighted entry parsed from an Accept header.
type acceptCandidate struct {
	contentType string
	q           float64
}

// PreferredFormat parses an HTTP Accept header's q-value-weighted
// preference list and returns the highest-weighted Format it recognizes,
// or Unknown if the header is empty or names nothing recognized.
func PreferredFormat(accept string) Format {
	if accept == "" {
		return Unknown
	}
	var candidates []acceptCandidate
	for _, part := range strings.Split(accept, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		segs := strings.Split(part, ";")
		ct := strings.TrimSpace(segs[0])
		q := 1.0
		for _, param := range segs[1:] {
			param = strings.TrimSpace(param)
			if v, ok := strings.CutPrefix(param, "q="); ok {
				if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
					q = parsed
				}
			}
		}
		candidates = append(candidates, acceptCandidate{contentType: ct, q: q})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].q > candidates[j].q })
	for _, c := range candidates {
		if f := FormatFromContentType(c.contentType); f != Unknown {
			return f
		}
	}
	return Unknown
}
