// Package sequence defines the ordered catalog of instance types the
// autoscaler is allowed to step through.
package sequence

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrUnknownType means the current instance type is not part of the
	// configured sequence. This is a misconfiguration: the instance has
	// drifted outside the supported size range.
	ErrUnknownType = errors.New("instance type not in configured sequence")

	// ErrAtMaximum means there is no larger type to step to.
	ErrAtMaximum = errors.New("already at maximum instance type")

	// ErrAtMinimum means there is no smaller type to step to.
	ErrAtMinimum = errors.New("already at minimum instance type")
)

// Sequence is a total order over allowed instance types, smallest first.
// A scaling step always moves exactly one position.
type Sequence struct {
	types []string
	index map[string]int
}

// New builds a Sequence from an ordered list of instance types.
func New(types []string) (*Sequence, error) {
	if len(types) == 0 {
		return nil, errors.New("instance type sequence must not be empty")
	}

	index := make(map[string]int, len(types))
	for i, t := range types {
		if t == "" {
			return nil, fmt.Errorf("instance type at position %d is empty", i)
		}
		if _, dup := index[t]; dup {
			return nil, fmt.Errorf("duplicate instance type %q in sequence", t)
		}
		index[t] = i
	}

	return &Sequence{types: types, index: index}, nil
}

// Types returns the configured types in order, smallest first.
func (s *Sequence) Types() []string {
	out := make([]string, len(s.types))
	copy(out, s.types)
	return out
}

// Contains reports whether t is a member of the sequence.
func (s *Sequence) Contains(t string) bool {
	_, ok := s.index[t]
	return ok
}

// NextLarger returns the type one position above current. It returns
// ErrAtMaximum at the top of the sequence and ErrUnknownType if current
// is not a member.
func (s *Sequence) NextLarger(current string) (string, error) {
	i, ok := s.index[current]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, current)
	}
	if i >= len(s.types)-1 {
		return "", ErrAtMaximum
	}
	return s.types[i+1], nil
}

// NextSmaller returns the type one position below current. It returns
// ErrAtMinimum at the bottom of the sequence and ErrUnknownType if current
// is not a member.
func (s *Sequence) NextSmaller(current string) (string, error) {
	i, ok := s.index[current]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, current)
	}
	if i <= 0 {
		return "", ErrAtMinimum
	}
	return s.types[i-1], nil
}
