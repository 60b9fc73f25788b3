package rdfio

import "strings"

// parsedIRI is a minimal RFC 3986 decomposition: scheme, authority
// (including the leading "//"), path, query (including leading "?"), and
// fragment (including leading "#"). Components are empty strings when
// absent, except hasAuthority/hasScheme which distinguish "absent" from
// "empty but present" (e.g. "scheme://@path" with an empty authority).
type parsedIRI struct {
	scheme      string
	hasScheme   bool
	authority   string
	hasAuthority bool
	path        string
	query       string
	fragment    string
}

func splitIRI(s string) parsedIRI {
	var p parsedIRI
	rest := s
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		p.fragment = rest[i:]
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		p.query = rest[i:]
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, ':'); i >= 0 && isValidScheme(rest[:i]) {
		p.scheme = rest[:i]
		p.hasScheme = true
		rest = rest[i+1:]
	}
	if strings.HasPrefix(rest, "//") {
		p.hasAuthority = true
		end := len(rest)
		if i := strings.IndexByte(rest[2:], '/'); i >= 0 {
			end = i + 2
		}
		p.authority = rest[:end]
		rest = rest[end:]
	}
	p.path = rest
	return p
}

func isValidScheme(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

func (p parsedIRI) String() string {
	var b strings.Builder
	if p.hasScheme {
		b.WriteString(p.scheme)
		b.WriteByte(':')
	}
	if p.hasAuthority {
		b.WriteString(p.authority)
	}
	b.WriteString(p.path)
	b.WriteString(p.query)
	b.WriteString(p.fragment)
	return b.String()
}

// removeDotSegments implements RFC 3986 §5.2.4: it removes "." and ".."
// segments from a merged path, as used when resolving a relative reference
// against a base IRI.
func removeDotSegments(path string) string {
	var out []string
	in := path
	for in != "" {
		switch {
		case strings.HasPrefix(in, "../"):
			in = in[3:]
		case strings.HasPrefix(in, "./"):
			in = in[2:]
		case strings.HasPrefix(in, "/./"):
			in = "/" + in[3:]
		case in == "/.":
			in = "/"
		case strings.HasPrefix(in, "/../"):
			in = "/" + in[4:]
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		case in == "/..":
			in = "/"
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		case in == ".", in == "..":
			in = ""
		default:
			// Remove the first path segment (possibly with a leading "/")
			// and append it to out.
			start := 0
			if strings.HasPrefix(in, "/") {
				start = 1
			}
			rest := in[start:]
			i := strings.IndexByte(rest, '/')
			var seg string
			if i < 0 {
				seg = in
				in = ""
			} else {
				seg = in[:start+i]
				in = in[start+i:]
			}
			out = append(out, seg)
		}
	}
	return strings.Join(out, "")
}

func mergePath(basePath string, hasBaseAuthority bool, refPath string) string {
	if hasBaseAuthority && basePath == "" {
		return "/" + refPath
	}
	if i := strings.LastIndexByte(basePath, '/'); i >= 0 {
		return basePath[:i+1] + refPath
	}
	return refPath
}

// ResolveIRI resolves reference ref against base per RFC 3986 §5.3, using
// the component recomposition algorithm there (strict mode: a reference
// scheme, if present, always wins over the base's).
func ResolveIRI(base, ref string) string {
	r := splitIRI(ref)
	if r.hasScheme {
		r.path = removeDotSegments(r.path)
		return r.String()
	}
	b := splitIRI(base)
	var out parsedIRI
	out.scheme, out.hasScheme = b.scheme, b.hasScheme

	if r.hasAuthority {
		out.authority, out.hasAuthority = r.authority, true
		out.path = removeDotSegments(r.path)
		out.query = r.query
	} else {
		out.authority, out.hasAuthority = b.authority, b.hasAuthority
		if r.path == "" {
			out.path = b.path
			if r.query != "" {
				out.query = r.query
			} else {
				out.query = b.query
			}
		} else {
			if strings.HasPrefix(r.path, "/") {
				out.path = removeDotSegments(r.path)
			} else {
				out.path = removeDotSegments(mergePath(b.path, b.hasAuthority, r.path))
			}
			out.query = r.query
		}
	}
	out.fragment = r.fragment
	return out.String()
}
