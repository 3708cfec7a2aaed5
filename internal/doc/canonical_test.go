package doc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"scalars in array", []any{"x", 3, int64(-7), false}, `["x",3,-7,false]`},
		{"empty containers", map[string]any{"a": []any{}, "b": map[string]any{}}, `{"a":[],"b":{}}`},
		{"page ids", []string{"Docs.Install", ""}, `["Docs.Install",""]`},
		{
			"slot",
			map[string]any{"severity": "Error", "message": "m", "index": 0, "context": "Image : a.png"},
			`{"context":"Image : a.png","index":0,"message":"m","severity":"Error"}`,
		},
		{"wiki markup is not html escaped", "{{image reference=\"a.png\"/}} <b> &", `"{{image reference=\"a.png\"/}} <b> &"`},
		{"control characters", "a\nb\tc\x01", `"a\nb\tc\u0001"`},
		{"line separator stays literal", "a\u2028b", "\"a\u2028b\""},
		{"nfc normalized", "Re\u0301sume\u0301", "\"R\u00e9sum\u00e9\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonicalKeyOrderIsUTF16(t *testing.T) {
	// U+1F600 encodes as a surrogate pair starting 0xD83D, which sorts
	// before U+E000 in UTF-16 but after it in UTF-8.
	got, err := MarshalCanonical(map[string]any{"\uE000": 1, "\U0001F600": 2, "a": 3})
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":3,\"\U0001F600\":2,\"\uE000\":1}", string(got))
}

func TestMarshalCanonicalRejectsUnsupported(t *testing.T) {
	for name, in := range map[string]any{
		"nil":    nil,
		"float":  1.5,
		"struct": map[string]any{"x": struct{}{}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := MarshalCanonical(in)
			assert.Error(t, err)
		})
	}
}
