package patch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roomPatch struct {
	Name      Field[string] `json:"name"`
	UnitCount Field[*int]   `json:"unit_count"`
	BasePrice Field[int64]  `json:"base_price"`
}

func TestUnmarshalDistinguishesAbsentFromNull(t *testing.T) {
	var p roomPatch
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Havsuite","unit_count":null}`), &p))

	name, ok := p.Name.Get()
	assert.True(t, ok)
	assert.Equal(t, "Havsuite", name)

	units, ok := p.UnitCount.Get()
	assert.True(t, ok, "explicit null must count as set")
	assert.Nil(t, units)

	assert.False(t, p.BasePrice.IsSet())
}

func TestAddOnlyCollectsSetFields(t *testing.T) {
	three := 3
	p := roomPatch{
		Name:      Unchanged[string](),
		UnitCount: Set(&three),
		BasePrice: Set[int64](120000),
	}

	cols := Columns{}
	Add(cols, "name", p.Name)
	Add(cols, "unit_count", p.UnitCount)
	Add(cols, "base_price", p.BasePrice)

	assert.Len(t, cols, 2)
	assert.Equal(t, int64(120000), cols["base_price"])
	assert.NotContains(t, cols, "name")
}

func TestValueOr(t *testing.T) {
	assert.Equal(t, "old", Unchanged[string]().ValueOr("old"))
	assert.Equal(t, "new", Set("new").ValueOr("old"))
}
