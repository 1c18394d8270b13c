package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	tests := []struct {
		name      string
		presented string
		expected  string
		want      bool
	}{
		{name: "coincide", presented: "s3cret", expected: "s3cret", want: true},
		{name: "distinto", presented: "wrong", expected: "s3cret", want: false},
		{name: "ausente", presented: "", expected: "s3cret", want: false},
		{name: "mayúsculas importan", presented: "S3CRET", expected: "s3cret", want: false},
		{name: "espacios importan", presented: "s3cret ", expected: "s3cret", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifySignature(tt.presented, tt.expected))
		})
	}
}
