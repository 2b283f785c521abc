package composition

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueOf(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null()},
		{"bool", true, Bool(true)},
		{"string", "hi", String("hi")},
		{"int", 42, Number(42)},
		{"int64", int64(-7), Number(-7)},
		{"uint8", uint8(200), Number(200)},
		{"float32", float32(0.5), Number(0.5)},
		{"slice", []any{1, "a", nil}, List(Number(1), String("a"), Null())},
		{"typed slice", []string{"a", "b"}, List(String("a"), String("b"))},
		{"map", map[string]any{"k": []any{true}}, Map(Props{"k": List(Bool(true))})},
		{"typed map", map[string]int{"n": 1}, Map(Props{"n": Number(1)})},
		{"nil pointer", (*int)(nil), Null()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValueOf(tt.in)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}

func TestValueOfRejectsUnsupportedTypes(t *testing.T) {
	tests := []struct {
		name string
		in   any
		path string
	}{
		{"channel", make(chan int), ""},
		{"func", func() {}, ""},
		{"struct", struct{ A int }{1}, ""},
		{"int keys", map[int]string{1: "a"}, ""},
		{"nested", map[string]any{"outer": []any{1, make(chan int)}}, "outer[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValueOf(tt.in)
			var serr *SerializationError
			require.True(t, errors.As(err, &serr), "expected SerializationError, got %v", err)
			assert.Equal(t, tt.path, serr.Path)
		})
	}
}

func TestValueAccessors(t *testing.T) {
	s, ok := String("x").AsString()
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	_, ok = String("x").AsNumber()
	assert.False(t, ok)

	n, ok := Int(3).AsNumber()
	assert.True(t, ok)
	assert.Equal(t, 3.0, n)

	b, ok := Bool(true).AsBool()
	assert.True(t, ok)
	assert.True(t, b)

	assert.True(t, Value{}.IsNull())
	assert.Equal(t, KindNull, Value{}.Kind())
	assert.Equal(t, "list", KindList.String())
}

func TestValueListIsCopied(t *testing.T) {
	items := []Value{String("a"), String("b")}
	v := List(items...)
	items[0] = String("z")

	got, ok := v.AsList()
	require.True(t, ok)
	first, _ := got[0].AsString()
	assert.Equal(t, "a", first)

	got[1] = Null()
	again, _ := v.AsList()
	assert.False(t, again[1].IsNull())
}

func TestValueEqual(t *testing.T) {
	assert.True(t, Null().Equal(Null()))
	assert.False(t, Null().Equal(Bool(false)))
	assert.False(t, Number(1).Equal(String("1")))
	assert.False(t, List(Int(1)).Equal(List(Int(1), Int(2))))
	assert.True(t, Map(Props{"a": Int(1), "b": Int(2)}).Equal(Map(Props{"b": Int(2), "a": Int(1)})))
	assert.False(t, Map(Props{"a": Int(1)}).Equal(Map(Props{"b": Int(1)})))
}

func TestValueString(t *testing.T) {
	v := Map(Props{"b": List(Int(1), Bool(false)), "a": String("x"), "c": Null()})
	assert.Equal(t, `{"a": "x", "b": [1, false], "c": null}`, v.String())
}

func TestMergeDoesNotTouchInputs(t *testing.T) {
	defaults := Props{"a": Int(1), "b": Int(2)}
	overrides := Props{"b": Int(20), "c": Int(30)}

	merged := Merge(defaults, overrides)

	assert.True(t, merged.Equal(Props{"a": Int(1), "b": Int(20), "c": Int(30)}))
	assert.True(t, defaults.Equal(Props{"a": Int(1), "b": Int(2)}))
	assert.True(t, overrides.Equal(Props{"b": Int(20), "c": Int(30)}))
}

func TestMergeIsShallow(t *testing.T) {
	defaults := Props{"style": Map(Props{"color": String("red"), "size": Int(10)})}
	overrides := Props{"style": Map(Props{"color": String("blue")})}

	merged := Merge(defaults, overrides)

	style, _ := merged["style"].AsMap()
	assert.Len(t, style, 1)
	assert.NotContains(t, style, "size")
}

func TestPropsKeysSorted(t *testing.T) {
	p := Props{"zeta": Null(), "alpha": Null(), "mid": Null()}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, p.Keys())
}
