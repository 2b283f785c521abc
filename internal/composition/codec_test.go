package composition

import (
	"encoding/json"
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func richDescriptor(t *testing.T) Descriptor {
	t.Helper()
	d, err := New("lower-third", 1280, 720, 29.97, 300,
		Props{
			"title":   String("Hello"),
			"visible": Bool(true),
			"opacity": Number(0.75),
			"logo":    Null(),
			"colors":  List(String("#fff"), String("#000")),
			"layout":  Map(Props{"x": Int(10), "y": Int(-20), "tags": List()}),
		},
		Props{"title": String("Override")},
	)
	require.NoError(t, err)
	return d
}

func TestJSONRoundTrip(t *testing.T) {
	d := richDescriptor(t)

	data, err := EncodeJSON(d)
	require.NoError(t, err)

	back, err := DecodeJSON(data)
	require.NoError(t, err)
	assert.True(t, d.Equal(back), "round trip mismatch:\n%s", data)
}

func TestYAMLRoundTrip(t *testing.T) {
	d := richDescriptor(t)

	data, err := EncodeYAML(d)
	require.NoError(t, err)

	back, err := DecodeYAML(data)
	require.NoError(t, err)
	assert.True(t, d.Equal(back), "round trip mismatch:\n%s", data)
}

func TestJSONUsesDescriptorKeys(t *testing.T) {
	data, err := json.Marshal(introDescriptor(t))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{"defaultProps", "durationInFrames", "fps", "height", "id", "props", "width"}, keys)
}

func TestEmptyPropsEncodeAsObjects(t *testing.T) {
	d := MustNew("bare", 100, 100, 24, 24, nil, nil)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"width":100,"height":100,"fps":24,"durationInFrames":24,"id":"bare","defaultProps":{},"props":{}}`, string(data))
}

func TestDecodeIgnoresKeyOrder(t *testing.T) {
	a, err := DecodeJSON([]byte(`{"id":"x","width":10,"height":20,"fps":30,"durationInFrames":40,
		"defaultProps":{"a":1,"b":{"c":true,"d":null}},"props":{"z":"last","a":2}}`))
	require.NoError(t, err)

	b, err := DecodeJSON([]byte(`{"props":{"a":2,"z":"last"},"defaultProps":{"b":{"d":null,"c":true},"a":1},
		"durationInFrames":40,"fps":30,"height":20,"width":10,"id":"x"}`))
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
}

func TestDecodeValidates(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		field string
	}{
		{"zero width json", `{"width":0,"height":1,"fps":1,"durationInFrames":1,"id":"a","defaultProps":{},"props":{}}`, "width"},
		{"missing id json", `{"width":1,"height":1,"fps":1,"durationInFrames":1}`, "id"},
		{"null json", `null`, "width"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeJSON([]byte(tt.data))
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Contains(t, invalidFields(err), tt.field)
		})
	}

	_, err := DecodeYAML([]byte("width: 1\nheight: 1\nfps: -5\ndurationInFrames: 1\nid: a\n"))
	assert.Equal(t, []string{"fps"}, invalidFields(err))

	_, err = DecodeYAML([]byte(""))
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestDecodeRejectsMalformedDocuments(t *testing.T) {
	tests := []struct {
		name   string
		decode func([]byte) (Descriptor, error)
		data   string
	}{
		{"json unknown key", DecodeJSON, `{"width":1,"height":1,"fps":1,"durationInFrames":1,"id":"a","codec":"h264"}`},
		{"json fractional frames", DecodeJSON, `{"width":1,"height":1,"fps":1,"durationInFrames":1.5,"id":"a"}`},
		{"json width as string", DecodeJSON, `{"width":"wide","height":1,"fps":1,"durationInFrames":1,"id":"a"}`},
		{"json syntax", DecodeJSON, `{"width":`},
		{"yaml unknown key", DecodeYAML, "width: 1\nheight: 1\nfps: 1\ndurationInFrames: 1\nid: a\ncodec: h264\n"},
		{"yaml sequence", DecodeYAML, "- 1\n- 2\n"},
		{"yaml binary prop", DecodeYAML, "width: 1\nheight: 1\nfps: 1\ndurationInFrames: 1\nid: a\nprops:\n  blob: !!binary aGVsbG8=\n"},
		{"yaml nan prop", DecodeYAML, "width: 1\nheight: 1\nfps: 1\ndurationInFrames: 1\nid: a\nprops:\n  x: .nan\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.decode([]byte(tt.data))
			var serr *SerializationError
			require.True(t, errors.As(err, &serr), "expected SerializationError, got %v", err)
		})
	}
}

func TestEncodeRejectsNonFiniteNumbers(t *testing.T) {
	d := MustNew("bad", 10, 10, 10, 10, nil, Props{"score": Number(math.NaN())})

	_, err := EncodeJSON(d)
	var serr *SerializationError
	require.True(t, errors.As(err, &serr), "expected SerializationError, got %v", err)
	assert.Equal(t, "props.score", serr.Path)

	_, err = EncodeYAML(d)
	require.True(t, errors.As(err, &serr), "expected SerializationError, got %v", err)

	nested := MustNew("bad", 10, 10, 10, 10, Props{"a": List(Int(1), Number(math.Inf(-1)))}, nil)
	_, err = EncodeJSON(nested)
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "defaultProps.a[1]", serr.Path)
}

func TestEncodeZeroDescriptorFails(t *testing.T) {
	_, err := EncodeJSON(Descriptor{})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestYAMLAliasesResolve(t *testing.T) {
	data := []byte(`
width: 640
height: 360
fps: 25
durationInFrames: 50
id: alias
defaultProps:
  palette: &pal [red, green]
props:
  palette: *pal
`)
	d, err := DecodeYAML(data)
	require.NoError(t, err)
	assert.True(t, d.DefaultProps()["palette"].Equal(d.Props()["palette"]))
}

func TestDescriptorInsideYAMLDocument(t *testing.T) {
	type wrapper struct {
		Composition Descriptor `yaml:"composition"`
	}
	in := wrapper{Composition: introDescriptor(t)}

	data, err := yaml.Marshal(in)
	require.NoError(t, err)

	var out wrapper
	require.NoError(t, yaml.Unmarshal(data, &out))
	assert.True(t, in.Composition.Equal(out.Composition))
}

func TestParseProps(t *testing.T) {
	p, err := ParseProps([]byte(`{"title": "Hi", "count": 3, "nested": {"ok": true}}`))
	require.NoError(t, err)
	assert.True(t, p.Equal(Props{"title": String("Hi"), "count": Int(3), "nested": Map(Props{"ok": Bool(true)})}))

	p, err = ParseProps([]byte("title: Hi\nlist: [1, 2]\n"))
	require.NoError(t, err)
	assert.True(t, p.Equal(Props{"title": String("Hi"), "list": List(Int(1), Int(2))}))

	p, err = ParseProps([]byte("  \n"))
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = ParseProps([]byte(`[1, 2]`))
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = ParseProps([]byte(`{"a": 1, "a": 2}`))
	var serr *SerializationError
	assert.True(t, errors.As(err, &serr))
}
