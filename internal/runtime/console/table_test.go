package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/resourcewatch/internal/runtime/grip"
	"github.com/drblury/resourcewatch/internal/runtime/target"
)

func TestTableOfObjectsExpandsTwoLevels(t *testing.T) {
	h := attachedFrame(t)
	raw := RawMessage{
		Level:     LevelTable,
		Arguments: []any{[]any{map[string]any{"a": 1}, map[string]any{"a": 2}}},
	}
	rec := newNormalizer().Normalize(h, raw)

	require.Len(t, rec.Arguments, 1)
	subject := rec.Arguments[0]
	assert.Nil(t, subject.Preview)
	require.Len(t, subject.OwnProperties, 2)

	for _, key := range []string{"0", "1"} {
		desc := subject.OwnProperties[key]
		require.NotNil(t, desc, key)
		require.NotNil(t, desc.Value)
		require.Contains(t, desc.Value.OwnProperties, "a")
	}
	assert.Equal(t, 2, subject.OwnProperties["1"].Value.OwnProperties["a"].Value.Value)
}

func TestTableTruncatesToTwoArguments(t *testing.T) {
	h := attachedFrame(t)
	raw := RawMessage{
		Level:     LevelTable,
		Arguments: []any{[]any{1}, []any{"col"}, "dropped", "also dropped"},
	}
	rec := newNormalizer().Normalize(h, raw)
	assert.Len(t, rec.Arguments, 2)
	assert.Equal(t, "Array", rec.Arguments[1].Class)
}

func TestTableOfMapEnumeratesEntries(t *testing.T) {
	h := attachedFrame(t)
	raw := RawMessage{
		Level: LevelTable,
		Arguments: []any{grip.MapValue{Entries: []grip.Entry{
			{Key: "first", Value: map[string]any{"x": 1}},
			{Key: "second", Value: 2},
		}}},
	}
	rec := newNormalizer().Normalize(h, raw)

	props := rec.Arguments[0].OwnProperties
	require.Len(t, props, 2)
	assert.Equal(t, grip.TypeMapEntry, props["0"].Value.Type)
	assert.Equal(t, "first", props["0"].Value.Preview.Key.Value)
}

func TestTableOfArrayIgnoresNamedProperties(t *testing.T) {
	h := attachedFrame(t)
	raw := RawMessage{
		Level:     LevelTable,
		Arguments: []any{grip.ArrayValue{Items: []any{"a", "b"}, Named: map[string]any{"label": "x"}}},
	}
	rec := newNormalizer().Normalize(h, raw)

	props := rec.Arguments[0].OwnProperties
	assert.Len(t, props, 2)
	assert.NotContains(t, props, "label")
	assert.NotContains(t, props, "length")
}

func TestTableNestedExpansionStopsAfterOneLevel(t *testing.T) {
	h := attachedFrame(t)
	raw := RawMessage{
		Level: LevelTable,
		Arguments: []any{[]any{
			map[string]any{"inner": map[string]any{"deep": 1}},
		}},
	}
	rec := newNormalizer().Normalize(h, raw)

	row := rec.Arguments[0].OwnProperties["0"].Value
	require.Contains(t, row.OwnProperties, "inner")
	inner := row.OwnProperties["inner"].Value
	assert.Nil(t, inner.OwnProperties, "no expansion beyond one nested level")
	assert.NotEmpty(t, inner.Actor)
}

func TestTableExpandsGetterSlots(t *testing.T) {
	h := attachedFrame(t)
	raw := RawMessage{
		Level: LevelTable,
		Arguments: []any{map[string]any{
			"row": grip.Getter{Value: map[string]any{"a": 1}, Safe: true},
			"alt": grip.Getter{Value: map[string]any{"b": 2}},
		}},
	}
	rec := newNormalizer().Normalize(h, raw)

	props := rec.Arguments[0].OwnProperties
	require.NotNil(t, props["row"].SafeGetterValues)
	assert.Contains(t, props["row"].SafeGetterValues.OwnProperties, "a")
	require.NotNil(t, props["alt"].GetterValue)
	assert.Contains(t, props["alt"].GetterValue.OwnProperties, "b")
}

type poolless struct {
	target.Target
}

func TestTableWithoutActorKeepsPreview(t *testing.T) {
	h := attachedFrame(t)
	raw := RawMessage{Level: LevelTable, Arguments: []any{[]any{1, 2}}}

	rec := newNormalizer().Normalize(poolless{h}, raw)
	require.Len(t, rec.Arguments, 1)
	assert.Nil(t, rec.Arguments[0].OwnProperties)
	assert.NotNil(t, rec.Arguments[0].Preview)
}

func TestExpandTableItemMissingInputs(t *testing.T) {
	h := attachedFrame(t)
	assert.Nil(t, ExpandTableItem(h, nil))
	assert.Nil(t, ExpandTableItem(h, &Record{}))
	assert.Nil(t, ExpandTableItem(h, &Record{Arguments: []*grip.Grip{{Type: grip.TypeString, Value: "x"}}}))
	assert.Nil(t, ExpandTableItem(h, &Record{Arguments: []*grip.Grip{{Type: grip.TypeObject, Actor: "gone"}}}))

	rec := newNormalizer().Normalize(h, RawMessage{Level: LevelTable})
	assert.Empty(t, rec.Arguments)
}
