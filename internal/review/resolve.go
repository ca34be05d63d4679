package review

import "strings"

// MatchKind classifies the result of resolving a user-typed id prefix
// against the known edit and conversation ids.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchUnique
	MatchAmbiguous
)

// resolution is a closed sum type over the three ways resolving an id
// prefix can come out: exactly one candidate, more than one, or none.
// Kept as an unexported interface (rather than a single struct with
// unused fields depending on outcome, or a returned error for the "not
// found"/"ambiguous" cases) so a caller's switch on Match() is
// exhaustive by construction -- note that exceptions
// shouldn't carry control flow that a sum type expresses more directly.
type resolution interface {
	Match() (MatchKind, int)
}

// Unique is returned when exactly one edit id or conversation id
// matches the given prefix.
type Unique struct {
	ID     string
	IsEdit bool // false means the match is a conversation id
}

func (u Unique) Match() (MatchKind, int) { return MatchUnique, 1 }

// Ambiguous is returned when more than one id matches the given prefix.
type Ambiguous struct {
	Candidates []string
}

func (a Ambiguous) Match() (MatchKind, int) { return MatchAmbiguous, len(a.Candidates) }

// None is returned when no id matches the given prefix.
type None struct{}

func (None) Match() (MatchKind, int) { return MatchNone, 0 }

// ResolveID resolves a user-typed prefix against the known edit ids and
// conversation ids. Edit-id matches win over conversation-id matches,
// but only when the edit-id side is itself unambiguous: a prefix that
// is ambiguous among edit ids is reported as ambiguous even if it also
// happens to uniquely match a conversation id, since silently falling
// through to a different id space for the same typed string would
// surprise the reviewer.
func ResolveID(editIDs, convIDs []string, prefix string) resolution {
	editMatches := matchPrefix(editIDs, prefix)

	switch len(editMatches) {
	case 1:
		return Unique{ID: editMatches[0], IsEdit: true}
	case 0:
		// fall through to conversation ids
	default:
		return Ambiguous{Candidates: editMatches}
	}

	convMatches := matchPrefix(convIDs, prefix)

	switch len(convMatches) {
	case 1:
		return Unique{ID: convMatches[0], IsEdit: false}
	case 0:
		return None{}
	default:
		return Ambiguous{Candidates: convMatches}
	}
}

func matchPrefix(ids []string, prefix string) []string {
	var matches []string

	for _, id := range ids {
		if strings.HasPrefix(id, prefix) {
			matches = append(matches, id)
		}
	}

	return matches
}
