package lattice

import "golang.org/x/exp/slices"

// Coverage tells how the signatures of a protocol member should be satisfied.
type Coverage uint8

const (
	// AnySignature requires the candidate member to match at least one of the signatures.
	AnySignature Coverage = iota

	// EverySignature requires the candidate member to match each signature (overloaded requirement),
	// for example an indexer accepting either an integer or a slice.
	EverySignature
)

func (c Coverage) String() string {
	if c == EverySignature {
		return "every"
	}
	return "any"
}

type ProtocolMember struct {
	Name       string
	Signatures []*CallableSignature
	Coverage   Coverage

	//Members checked instead when the candidate has no member named Name, the first one
	//the candidate defines is used. For example __getitem__ makes a class iterable.
	Fallbacks []ProtocolMember
}

// A ProtocolSpec is the set of members a value should have to satisfy a protocol class.
type ProtocolSpec struct {
	name    string
	members []ProtocolMember
}

func (s *ProtocolSpec) Name() string {
	return s.name
}

// Members returns the required members in declaration order.
func (s *ProtocolSpec) Members() []ProtocolMember {
	return slices.Clone(s.members)
}

func (s *ProtocolSpec) MemberCount() int {
	return len(s.members)
}
