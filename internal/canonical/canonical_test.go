package canonical

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalSortsMapKeys(t *testing.T) {
	a := map[string]any{"zulu": 1, "alpha": 2, "mike": 3}
	b := map[string]any{"mike": 3, "alpha": 2, "zulu": 1}

	outA, err := Marshal(a)
	require.NoError(t, err)
	outB, err := Marshal(b)
	require.NoError(t, err)

	assert.Equal(t, outA, outB)
	assert.Equal(t, `{"alpha":2,"mike":3,"zulu":1}`, string(outA))
}

func TestMarshalIsRepeatable(t *testing.T) {
	v := map[string]any{
		"org":    "wynergy-fibre-solutions",
		"pins":   []any{"fibre-core", "netmon"},
		"nested": map[string]any{"b": true, "a": nil},
	}

	first, err := Marshal(v)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Marshal(v)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestMarshalPreservesSequenceOrder(t *testing.T) {
	out, err := Marshal([]any{"c", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, `["c","a","b"]`, string(out))
}

func TestMarshalScalars(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "null"},
		{"true", true, "true"},
		{"false", false, "false"},
		{"string", "hello", `"hello"`},
		{"int", 42, "42"},
		{"negative", -7, "-7"},
		{"float", 1.5, "1.5"},
		{"whole float", float64(3), "3"},
		{"nan", math.NaN(), "null"},
		{"pos inf", math.Inf(1), "null"},
		{"neg inf", math.Inf(-1), "null"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Marshal(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(out))
		})
	}
}

func TestMarshalNonFiniteInsideContainers(t *testing.T) {
	out, err := Marshal(map[string]any{"v": math.NaN(), "w": []any{math.Inf(1)}})
	require.NoError(t, err)
	assert.Equal(t, `{"v":null,"w":[null]}`, string(out))
}

func TestMarshalDoesNotEscapeHTML(t *testing.T) {
	out, err := Marshal("<a href=\"x\">&</a>")
	require.NoError(t, err)
	assert.Equal(t, `"<a href=\"x\">&</a>"`, string(out))
}

func TestMarshalEscapesControlCharacters(t *testing.T) {
	out, err := Marshal("line1\nline2\ttail\x01")
	require.NoError(t, err)
	assert.Equal(t, `"line1\nline2\ttail\u0001"`, string(out))
}

func TestMarshalStructsUseJSONTags(t *testing.T) {
	type payload struct {
		TS           string `json:"ts"`
		EvidencePath string `json:"evidence_path"`
	}
	out, err := Marshal(payload{TS: "2026-01-01T00:00:00.000Z", EvidencePath: "out/evidence.json"})
	require.NoError(t, err)
	assert.Equal(t, `{"evidence_path":"out/evidence.json","ts":"2026-01-01T00:00:00.000Z"}`, string(out))
}

func TestMarshalRejectsCycles(t *testing.T) {
	type node struct {
		Next *node `json:"next"`
	}
	n := &node{}
	n.Next = n

	_, err := Marshal(n)
	require.Error(t, err)
}

func TestMarshalLargeExponents(t *testing.T) {
	out, err := Marshal(1e21)
	require.NoError(t, err)
	assert.Equal(t, "1e+21", string(out))

	out, err = Marshal(0.0000005)
	require.NoError(t, err)
	assert.Equal(t, "5e-7", string(out))
}

func TestMarshalDeepNesting(t *testing.T) {
	v := map[string]any{
		"observation": map[string]any{
			"pinned": []any{
				map[string]any{"name": "fibre-core", "public": true},
				map[string]any{"name": "netmon", "public": false},
			},
			"readme": true,
		},
	}
	out, err := Marshal(v)
	require.NoError(t, err)
	assert.Equal(t,
		`{"observation":{"pinned":[{"name":"fibre-core","public":true},{"name":"netmon","public":false}],"readme":true}}`,
		string(out))
}
