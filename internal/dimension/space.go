// Package dimension implements the fixed trust vector space: the ordered
// dimension set, the vector primitives over it, and the permission
// predicate that compares an identity against an action requirement.
package dimension

// names is the fixed, ordered dimension set. Order defines vector-index
// correspondence and is part of the on-disk contract for dense arrays:
// never reorder or renumber, only append in a new schema version.
var names = [...]string{
	"security",
	"reliability",
	"testing",
	"communication",
	"documentation",
	"code_quality",
	"performance",
	"maintainability",
	"error_handling",
	"monitoring",
	"scalability",
	"integrity",
	"availability",
	"confidentiality",
	"compatibility",
	"efficiency",
	"usability",
	"portability",
	"reusability",
	"flexibility",
}

// Count is the number of dimensions in the trust vector space.
const Count = len(names)

// index maps dimension name to vector position.
var index = func() map[string]int {
	m := make(map[string]int, Count)
	for i, n := range names {
		m[n] = i
	}
	return m
}()

// Names returns the ordered dimension names. The returned slice is a copy;
// the dimension set is immutable at runtime.
func Names() []string {
	out := make([]string, Count)
	copy(out, names[:])
	return out
}

// Index returns the vector position of a dimension name.
func Index(name string) (int, bool) {
	i, ok := index[name]
	return i, ok
}

// Valid reports whether name is a member of the dimension set.
func Valid(name string) bool {
	_, ok := index[name]
	return ok
}
