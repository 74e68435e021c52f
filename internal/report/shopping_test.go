package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rogue-Bear-Innovations/recipebook-back/internal/service"
)

var items = []service.ShoppingItem{
	{Name: "flour", MeasurementUnit: "cups", TotalAmount: 2},
	{Name: "flour", MeasurementUnit: "grams", TotalAmount: 500},
	{Name: "salt, sea", MeasurementUnit: "g", TotalAmount: 5},
}

func TestRenderText(t *testing.T) {
	out, err := Render(FormatText, items)
	require.NoError(t, err)
	assert.Equal(t, "Shopping list\n\n"+
		"1. flour (cups): 2\n"+
		"2. flour (grams): 500\n"+
		"3. salt, sea (g): 5\n", string(out))
}

func TestRenderCSV(t *testing.T) {
	out, err := Render(FormatCSV, items)
	require.NoError(t, err)
	assert.Equal(t, "name,measurement_unit,amount\n"+
		"flour,cups,2\n"+
		"flour,grams,500\n"+
		"\"salt, sea\",g,5\n", string(out))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)
	assert.Equal(t, "shopping_list.txt", f.Filename())

	f, err = ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", f.ContentType())

	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
