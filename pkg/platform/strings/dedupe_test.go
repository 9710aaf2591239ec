package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil", input: nil, expected: nil},
		{name: "empty", input: []string{}, expected: []string{}},
		{name: "broker list", input: []string{" kafka-1:9092", "kafka-2:9092 ", "", "kafka-1:9092"}, expected: []string{"kafka-1:9092", "kafka-2:9092"}},
		{name: "case kept", input: []string{"DL-N", "dl-n"}, expected: []string{"DL-N", "dl-n"}},
		{name: "only blanks", input: []string{" ", "\t"}, expected: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestDedupeAndTrimLower(t *testing.T) {
	assert.Equal(t,
		[]string{"complaint", "sample"},
		DedupeAndTrimLower([]string{"Complaint", " complaint ", "SAMPLE", ""}))
}
