package pages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		spec  string
		count int
		want  map[int]bool
	}{
		{"single", "3", 10, map[int]bool{2: true}},
		{"mixed", "3-6,9,12-13", 20, map[int]bool{2: true, 3: true, 4: true, 5: true, 8: true, 11: true, 12: true}},
		{"reversed range", "4-2", 10, map[int]bool{1: true, 2: true, 3: true}},
		{"spaces", " 1 , 2 - 3 ", 3, map[int]bool{0: true, 1: true, 2: true}},
		{"last page", "40", 40, map[int]bool{39: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.spec, tt.count)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseBlankMeansNoFilter(t *testing.T) {
	got, err := Parse("   ", 5)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestParseErrorsNameToken(t *testing.T) {
	tests := []struct {
		spec  string
		token string
	}{
		{"1,x", "x"},
		{"2-a", "2-a"},
		{"1-2-3", "1-2-3"},
		{"0", "0"},
		{"3,11", "11"},
		{"-4", "-4"},
		{",", ","},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			_, err := Parse(tt.spec, 10)
			require.Error(t, err)
			var re *RangeError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tt.token, re.Token)
			assert.Contains(t, err.Error(), tt.token)
		})
	}
}

func TestParseBoundsRangeByPageCount(t *testing.T) {
	_, err := Parse("1-5000000", 0)
	var re *RangeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "1-5000000", re.Token)

	_, err = Parse("2-2000000000", 12)
	require.True(t, errors.As(err, &re))
	assert.Contains(t, err.Error(), "document has 12 pages")
}
