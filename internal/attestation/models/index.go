package models

// IndexKind selects one of the two append-only attestation indexes.
type IndexKind string

const (
	IndexSubject IndexKind = "subject"
	IndexIssuer  IndexKind = "issuer"
)

func (k IndexKind) String() string {
	return string(k)
}

// Unbounded asks ListIndex for every entry from start to the end of the index.
const Unbounded = -1

// Window returns the half-open slice bounds [lo, hi) of a page of at most
// limit entries starting at start in an index of length n. A negative limit
// means "to the end". Callers get lo == hi for an empty page.
func Window(n int, start, limit int) (lo, hi int) {
	if start < 0 {
		start = 0
	}
	if start >= n || limit == 0 {
		return n, n
	}
	if limit < 0 || limit > n-start {
		return start, n
	}
	return start, start + limit
}
