// Package registry implements the HTTP object registry from spec §4.5:
// a flat list of entries (directories, static payloads, and dynamic
// action-bridging nodes) plus the built-in path table every x3270d
// HTTP listener starts with.
//
// Grounded on engine/acp's small-table-of-named-handlers shape (the
// ACP engine dispatches a fixed set of named RPCs the same way this
// registry dispatches a fixed set of paths), generalized to the
// prefix-matching DynNonterm case spec §4.5 requires for the REST API.
package registry

// Verb is an HTTP method, represented as a bit so an Entry can allow
// more than one with a single mask.
type Verb uint8

const (
	VerbGET Verb = 1 << iota
	VerbHEAD
	VerbPOST
)

// Has reports whether all bits in want are set in v.
func (v Verb) Has(want Verb) bool { return v&want == want }

// Kind identifies which of the five entry shapes spec §4.5 names.
type Kind int

const (
	// KindDir is a pure listing: GET enumerates non-hidden direct
	// children with their descriptions.
	KindDir Kind = iota
	// KindFixedText serves a static text payload.
	KindFixedText
	// KindFixedBinary serves a static binary payload.
	KindFixedBinary
	// KindDynTerm is a terminal dynamic node: the callback produces one
	// complete response for the exact registered path.
	KindDynTerm
	// KindDynNonterm matches any URI whose prefix is the registered path
	// followed by "/" (or end-of-string); the remainder is passed to the
	// callback.
	KindDynNonterm
)

// DynHandler produces a response for a DynTerm/DynNonterm entry.
// req.Rest is "" for DynTerm, or the path remainder after the
// registered prefix for DynNonterm. req.Query carries the request's
// parsed query parameters.
type DynHandler func(req *Request) (*Result, error)

// Request is the slice of an HTTP request a dynamic handler needs —
// httpd hands this down without registry importing httpd's own Request
// type, keeping the dependency one-directional.
type Request struct {
	Method      string
	Rest        string // remainder after a DynNonterm's registered prefix
	Query       map[string][]string
	ContentType string
	Body        []byte
}

// Result is a dynamic handler's response.
type Result struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Entry is one registered object.
type Entry struct {
	Path        string
	Kind        Kind
	Verbs       Verb
	Description string
	Hidden      bool // excluded from Dir listings (e.g. favicon.ico)

	// FixedText/FixedBinary payload.
	ContentType string
	Body        []byte

	// DynTerm/DynNonterm callback.
	Handler DynHandler
}
