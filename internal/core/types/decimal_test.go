package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantity(t *testing.T) {
	cases := map[string]Quantity{
		"30":        NewQuantity(30),
		"2.5":       25_000,
		"0.00015":   1,
		"-1.25":     -12_500,
		".5":        5_000,
		"+7":        NewQuantity(7),
		"1e2":       NewQuantity(100),
		" 12.3400 ": 123_400,
	}
	for in, want := range cases {
		got, err := ParseQuantity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseQuantity("")
	assert.Error(t, err)
	_, err = ParseQuantity("abc")
	assert.Error(t, err)
}

func TestQuantityJSON(t *testing.T) {
	var payload struct {
		A Quantity `json:"a"`
		B Quantity `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 12.5, "b": "3"}`), &payload))
	assert.Equal(t, Quantity(125_000), payload.A)
	assert.Equal(t, NewQuantity(3), payload.B)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 12.5, "b": 3}`, string(out))
}

func TestQuantityCost(t *testing.T) {
	q := Quantity(25_000) // 2.5
	assert.True(t, MustMoney("31.25").Equal(q.Cost(MustMoney("12.5"))))
	assert.Equal(t, "-0.0001", Quantity(-1).String())
}

func TestSumMoney(t *testing.T) {
	assert.True(t, NewMoney(6).Equal(SumMoney(NewMoney(1), NewMoney(2), NewMoney(3))))
	assert.True(t, SumMoney().IsZero())
}

func TestQuantityAddOverflow(t *testing.T) {
	big, err := ParseQuantity("922337203685477.5797")
	require.NoError(t, err)

	_, err = big.Add(big)
	assert.ErrorIs(t, err, ErrQuantityOverflow)

	sum, err := NewQuantity(2).Add(NewQuantity(3))
	require.NoError(t, err)
	assert.Equal(t, NewQuantity(5), sum)

	_, err = Quantity(math.MinInt64).Add(-1)
	assert.ErrorIs(t, err, ErrQuantityOverflow)
}
