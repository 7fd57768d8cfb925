package publisher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubjectToken(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"40", "40"},
		{"Red Line", "Red_Line"},
		{"a.b", "a_b"},
		{"x/y", "x_y"},
		{"*", "_"},
		{">", "_"},
		{"  ", "_"},
		{"", "_"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.out, SubjectToken(tt.in), "SubjectToken(%q)", tt.in)
	}
}
