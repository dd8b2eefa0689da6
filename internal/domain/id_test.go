package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_KeepsKind(t *testing.T) {
	var fromString, fromNumber ID
	require.NoError(t, json.Unmarshal([]byte(`"5"`), &fromString))
	require.NoError(t, json.Unmarshal([]byte(`5`), &fromNumber))

	assert.NotEqual(t, fromString, fromNumber, "5 and \"5\" must be distinct ids")
	assert.Equal(t, "5", fromString.String())
	assert.Equal(t, "5", fromNumber.String())

	out, err := json.Marshal(fromNumber)
	require.NoError(t, err)
	assert.Equal(t, `5`, string(out))

	out, err = json.Marshal(fromString)
	require.NoError(t, err)
	assert.Equal(t, `"5"`, string(out))
}

func TestID_LargeNumberPreserved(t *testing.T) {
	var id ID
	require.NoError(t, json.Unmarshal([]byte(`1718031234567`), &id))

	assert.Equal(t, NumericID(1718031234567), id)
}

func TestID_NullIsZero(t *testing.T) {
	id := StringID("T1")
	require.NoError(t, json.Unmarshal([]byte(`null`), &id))

	assert.True(t, id.IsZero())
	out, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `null`, string(out))
}

func TestID_RejectsNonScalar(t *testing.T) {
	for _, input := range []string{`{}`, `[]`, `true`} {
		var id ID
		assert.Error(t, json.Unmarshal([]byte(input), &id), input)
	}
}

func TestID_NumbersCompareByValue(t *testing.T) {
	tests := []struct {
		input string
		want  ID
	}{
		{input: `5`, want: NumericID(5)},
		{input: `5.0`, want: NumericID(5)},
		{input: `5e0`, want: NumericID(5)},
		{input: `1e1`, want: NumericID(10)},
		{input: `-0`, want: NumericID(0)},
		{input: `1718031234567.000`, want: NumericID(1718031234567)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var id ID
			require.NoError(t, json.Unmarshal([]byte(tt.input), &id))
			assert.Equal(t, tt.want, id)

			out, err := json.Marshal(id)
			require.NoError(t, err)
			assert.Equal(t, tt.want.String(), string(out))
		})
	}
}

func TestID_FractionalNumbersStayDistinct(t *testing.T) {
	var half, whole ID
	require.NoError(t, json.Unmarshal([]byte(`2.50`), &half))
	require.NoError(t, json.Unmarshal([]byte(`2`), &whole))

	assert.Equal(t, "2.5", half.String())
	assert.NotEqual(t, half, whole)
	assert.NotEqual(t, StringID("5"), NumericID(5))
}

func TestID_RejectsOutOfRangeNumber(t *testing.T) {
	var id ID
	assert.Error(t, json.Unmarshal([]byte(`1e400`), &id))
}
