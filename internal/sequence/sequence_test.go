package sequence

import (
	"errors"
	"testing"
)

var testTypes = []string{"t3.micro", "t3.small", "t3.medium", "t3.large"}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		types   []string
		wantErr bool
	}{
		{"valid", testTypes, false},
		{"empty", nil, true},
		{"duplicate", []string{"t3.micro", "t3.micro"}, true},
		{"blank entry", []string{"t3.micro", ""}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.types)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%v) error = %v, wantErr %v", tt.types, err, tt.wantErr)
			}
		})
	}
}

func TestSequence_NextLarger(t *testing.T) {
	seq, err := New(testTypes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		current string
		want    string
		wantErr error
	}{
		{"t3.micro", "t3.small", nil},
		{"t3.medium", "t3.large", nil},
		{"t3.large", "", ErrAtMaximum},
		{"m5.large", "", ErrUnknownType},
	}

	for _, tt := range tests {
		got, err := seq.NextLarger(tt.current)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NextLarger(%q) error = %v, want %v", tt.current, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("NextLarger(%q) unexpected error: %v", tt.current, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NextLarger(%q) = %q, want %q", tt.current, got, tt.want)
		}
	}
}

func TestSequence_NextSmaller(t *testing.T) {
	seq, err := New(testTypes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		current string
		want    string
		wantErr error
	}{
		{"t3.large", "t3.medium", nil},
		{"t3.small", "t3.micro", nil},
		{"t3.micro", "", ErrAtMinimum},
		{"c5.xlarge", "", ErrUnknownType},
	}

	for _, tt := range tests {
		got, err := seq.NextSmaller(tt.current)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NextSmaller(%q) error = %v, want %v", tt.current, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("NextSmaller(%q) unexpected error: %v", tt.current, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NextSmaller(%q) = %q, want %q", tt.current, got, tt.want)
		}
	}
}

func TestSequence_NeverLeavesBounds(t *testing.T) {
	seq, _ := New(testTypes)

	// Walking up from the bottom and down from the top must stay inside
	// the configured order at every step.
	cur := "t3.micro"
	for {
		next, err := seq.NextLarger(cur)
		if errors.Is(err, ErrAtMaximum) {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error at %q: %v", cur, err)
		}
		if !seq.Contains(next) {
			t.Fatalf("NextLarger(%q) returned %q outside sequence", cur, next)
		}
		cur = next
	}
	if cur != "t3.large" {
		t.Errorf("walk up ended at %q, want t3.large", cur)
	}
}
