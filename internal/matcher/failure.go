package matcher

import (
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/classyserve/pytype/internal/lattice"
)

// A Reason is the cause of a failed match, it is an error so that errors.Is(err, MissingMember) can be used.
type Reason uint8

const (
	MissingMember Reason = iota + 1
	NonCallableOverride
	IncompatibleSignature
	SubtypeMismatch
	UnionExhausted
	RecursionLimit

	//InternalError signals a malformed input (nil value, missing view entry, variable without visible binding).
	InternalError
)

func (r Reason) String() string {
	switch r {
	case MissingMember:
		return "missing-member"
	case NonCallableOverride:
		return "non-callable-override"
	case IncompatibleSignature:
		return "incompatible-signature"
	case SubtypeMismatch:
		return "subtype-mismatch"
	case UnionExhausted:
		return "union-exhausted"
	case RecursionLimit:
		return "recursion-limit"
	case InternalError:
		return "internal-error"
	default:
		return "reason(" + strconv.Itoa(int(r)) + ")"
	}
}

func (r Reason) Error() string {
	return r.String()
}

func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// A Failure is the structured result of a failed match. A failure produced during a nested match
// is kept as the Cause of its parent so that the deepest concrete cause can be reported.
type Failure struct {
	Reason Reason

	//Name of the member or of the type parameter involved, if any.
	Member string

	//Index of the required signature that could not be satisfied, -1 if not applicable.
	SignatureIndex int

	//Depth of the sub-match that produced the failure, top level matches have a depth of 1.
	Depth int

	Value  lattice.Value
	Target lattice.Value

	//Additional information for internal errors.
	Detail string

	Cause *Failure
}

func (f *Failure) Error() string {
	buf := new(strings.Builder)

	for current := f; current != nil; current = current.Cause {
		if current != f {
			buf.WriteString(": ")
		}
		buf.WriteString(current.Reason.String())

		if current.Value != nil && current.Target != nil {
			buf.WriteString(" (")
			buf.WriteString(current.Value.String())
			buf.WriteString(" against ")
			buf.WriteString(current.Target.String())
			buf.WriteByte(')')
		}
		if current.Member != "" {
			buf.WriteString(" [")
			buf.WriteString(current.Member)
			if current.SignatureIndex >= 0 {
				buf.WriteByte('#')
				buf.WriteString(strconv.Itoa(current.SignatureIndex))
			}
			buf.WriteByte(']')
		}
		if current.Detail != "" {
			buf.WriteString(" ")
			buf.WriteString(current.Detail)
		}
	}

	return buf.String()
}

func (f *Failure) Unwrap() []error {
	if f.Cause == nil {
		return []error{f.Reason}
	}
	return []error{f.Reason, f.Cause}
}

// Deepest returns the innermost failure of the chain.
func (f *Failure) Deepest() *Failure {
	current := f
	for current.Cause != nil {
		current = current.Cause
	}
	return current
}

// clone returns a copy of the failure chain, nil if f is nil.
func (f *Failure) clone() *Failure {
	if f == nil {
		return nil
	}
	copied := *f
	copied.Cause = f.Cause.clone()
	return &copied
}

// Path returns the chain of failures, from f to the deepest one.
func (f *Failure) Path() []*Failure {
	var path []*Failure
	for current := f; current != nil; current = current.Cause {
		path = append(path, current)
	}
	return path
}

type jsonFailure struct {
	Reason         Reason       `json:"reason"`
	Member         string       `json:"member,omitempty"`
	SignatureIndex *int         `json:"signatureIndex,omitempty"`
	Depth          int          `json:"depth"`
	Value          string       `json:"value,omitempty"`
	Target         string       `json:"target,omitempty"`
	Detail         string       `json:"detail,omitempty"`
	Cause          *jsonFailure `json:"cause,omitempty"`
}

func (f *Failure) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.toJSON())
}

func (f *Failure) toJSON() *jsonFailure {
	if f == nil {
		return nil
	}

	result := &jsonFailure{
		Reason: f.Reason,
		Member: f.Member,
		Depth:  f.Depth,
		Detail: f.Detail,
		Cause:  f.Cause.toJSON(),
	}
	if f.SignatureIndex >= 0 {
		index := f.SignatureIndex
		result.SignatureIndex = &index
	}
	if f.Value != nil {
		result.Value = f.Value.String()
	}
	if f.Target != nil {
		result.Target = f.Target.String()
	}
	return result
}
