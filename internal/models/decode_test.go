package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTicks_Object(t *testing.T) {
	ticks, rejected, err := DecodeTicks([]byte(` {"symbol":"btcusdt","ts":"2024-01-01T00:00:00Z","price":42000.5,"size":0.01} `))
	require.NoError(t, err)
	assert.Zero(t, rejected)
	require.Len(t, ticks, 1)
	assert.Equal(t, RawValue("42000.5"), ticks[0].Price)
	assert.Equal(t, "BTCUSDT", ticks[0].MirrorSymbol())
}

func TestDecodeTicks_ArraySkipsBadElements(t *testing.T) {
	ticks, rejected, err := DecodeTicks([]byte(`[
		{"symbol":"AAA","ts":"t1","price":10},
		{"symbol":"AAA","ts":"t2","price":true},
		{"symbol":"BBB","ts":"t3","price":"5.0","size":2}
	]`))
	require.NoError(t, err)
	assert.Equal(t, 1, rejected)
	require.Len(t, ticks, 2)
	assert.Equal(t, "t1", ticks[0].TS)
	assert.Equal(t, RawValue("5.0"), ticks[1].Price)
	assert.Equal(t, "2", ticks[1].SizeText())
}

func TestDecodeTicks_Errors(t *testing.T) {
	_, _, err := DecodeTicks([]byte("   "))
	assert.ErrorIs(t, err, ErrEmptyPayload)

	_, _, err = DecodeTicks([]byte(`{"symbol":`))
	assert.Error(t, err)
}

func TestTick_Helpers(t *testing.T) {
	tk := NewTick(" eth ", "t1", 1.5, 0)
	assert.Equal(t, "ETH", tk.MirrorSymbol())
	assert.Equal(t, RawValue("1.5"), tk.Price)
	assert.Equal(t, "0", tk.SizeText())
	assert.Equal(t, "UNKNOWN", Tick{}.MirrorSymbol())
	assert.Equal(t, "0.0", Tick{}.SizeText())
}

func TestDecodeTicks_KeepsNonNumericValuesVerbatim(t *testing.T) {
	ticks, rejected, err := DecodeTicks([]byte(`[
		{"symbol":"AAA","ts":"t1","price":10},
		{"symbol":"AAA","ts":"t2","price":"abc"},
		{"symbol":"AAA","ts":"t3","price":"12.5","size":null},
		{"symbol":"AAA","ts":"t4","price":1e3,"size":"lots"}
	]`))
	require.NoError(t, err)
	assert.Zero(t, rejected)
	require.Len(t, ticks, 4)
	assert.Equal(t, RawValue("10"), ticks[0].Price)
	assert.Equal(t, RawValue("abc"), ticks[1].Price)
	assert.Equal(t, RawValue("12.5"), ticks[2].Price)
	assert.Equal(t, "0.0", ticks[2].SizeText())
	assert.Equal(t, RawValue("1e3"), ticks[3].Price)
	assert.Equal(t, "lots", ticks[3].SizeText())

	single, _, err := DecodeTicks([]byte(`{"symbol":"AAA","ts":"t5","price":"abc"}`))
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Equal(t, RawValue("abc"), single[0].Price)
}

func TestRawValue_RejectsNonScalars(t *testing.T) {
	_, _, err := DecodeTicks([]byte(`{"symbol":"AAA","ts":"t1","price":{"v":1}}`))
	assert.ErrorIs(t, err, ErrNotScalar)

	_, rejected, err := DecodeTicks([]byte(`[{"symbol":"AAA","ts":"t1","price":[1]},{"symbol":"AAA","ts":"t2","price":false}]`))
	require.NoError(t, err)
	assert.Equal(t, 2, rejected)
}

func TestRawValue_MarshalJSON(t *testing.T) {
	out, err := json.Marshal(Tick{Symbol: "AAA", TS: "t1", Price: "10.5", Size: "abc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"symbol":"AAA","ts":"t1","price":10.5,"size":"abc"}`, string(out))

	out, err = json.Marshal(Tick{Symbol: "AAA", TS: "t1", Price: "NaN"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"symbol":"AAA","ts":"t1","price":"NaN"}`, string(out))
}
