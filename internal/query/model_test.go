package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/netkit/internal/codec"
)

type search struct {
	Term     string   `json:"term"`
	Tags     []string `json:"tags"`
	Page     int      `json:"page"`
	Ratio    float64  `json:"ratio"`
	Exact    bool     `json:"exact"`
	Optional *string  `json:"optional"`
	Filter   filter   `json:"filter"`
}

type filter struct {
	Status string `json:"status"`
}

func TestFromModel(t *testing.T) {
	c := codec.New()
	m := search{Term: "a b", Tags: []string{"x", "y"}, Page: 2, Ratio: 0.5, Exact: true, Filter: filter{Status: "open"}}

	pairs, err := FromModel(c, m)
	require.NoError(t, err)

	assert.Equal(t, "exact=true&filter[status]=open&page=2&ratio=0.5&tags=x&tags=y&term=a b", pairs.Raw())
	assert.Equal(t, "exact=true&filter[status]=open&page=2&ratio=0%2E5&tags=x&tags=y&term=a%20b", pairs.Encode())

	again, err := FromModel(c, m)
	require.NoError(t, err)
	assert.Equal(t, pairs.Encode(), again.Encode())
}

func TestFromModelSnakeKeys(t *testing.T) {
	type body struct {
		FirstName string
		UserID    int
	}
	pairs, err := FromModel(codec.New(codec.KeyEncoding(codec.KeysSnakeCase)), body{FirstName: "Ada", UserID: 7})
	require.NoError(t, err)
	assert.Equal(t, "first_name=Ada&user_id=7", pairs.Raw())
}

func TestFromModelRejectsScalars(t *testing.T) {
	_, err := FromModel(codec.New(), 42)
	assert.Error(t, err)

	pairs, err := FromModel(codec.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestPairsState(t *testing.T) {
	pairs := Pairs{{"a", "c"}, {"a", "b"}, {"d", "e"}, {"a", "b"}}
	assert.Equal(t, "a=b&a=c&d=e", pairs.State().Encode())
}

func TestPairsAppendTo(t *testing.T) {
	pairs := Pairs{{"name", ""}, {"note", " padded"}, {"tags", "x"}, {"tags", "x"}}

	tests := []struct {
		name   string
		raw    string
		escape bool
		want   string
	}{
		{"empty query", "", true, "name=&note=%20padded&tags=x&tags=x"},
		{"keeps other items verbatim", "sig=YWJj==&flag&path=a/b", true, "sig=YWJj==&flag&path=a/b&name=&note=%20padded&tags=x&tags=x"},
		{"replaces keys", "tags=y&page=1&name=old", false, "page=1&name=&note= padded&tags=x&tags=x"},
		{"matches escaped keys", "na%6De=old&&q=1", false, "q=1&name=&note= padded&tags=x&tags=x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pairs.AppendTo(tt.raw, tt.escape))
		})
	}

	assert.Equal(t, "a=1", Pairs(nil).AppendTo("a=1", true))
}
