package workbook

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArea(t *testing.T) {
	cases := []struct {
		ref  string
		want area
	}{
		{"A1", area{firstRow: 0, firstCol: 0, lastRow: 0, lastCol: 0}},
		{"B3:D4", area{firstRow: 2, firstCol: 1, lastRow: 3, lastCol: 3}},
		{"D4:B3", area{firstRow: 2, firstCol: 1, lastRow: 3, lastCol: 3}},
		{"Sheet1!$A$1:$B$2", area{sheet: "Sheet1", lastRow: 1, lastCol: 1}},
		{"='My Sheet'!C2", area{sheet: "My Sheet", firstRow: 1, firstCol: 2, lastRow: 1, lastCol: 2}},
		{"'Bob''s'!A1", area{sheet: "Bob's"}},
	}
	for _, c := range cases {
		got, err := parseArea(c.ref)
		require.NoError(t, err, c.ref)
		assert.Equal(t, c.want, got, c.ref)
	}
}

func TestParseAreaInvalid(t *testing.T) {
	for _, ref := range []string{"", "Sheet1!", "A1:B2:C3", "1A", "A:A"} {
		_, err := parseArea(ref)
		assert.True(t, errors.Is(err, ErrInvalidReference), ref)
	}
}

func TestSplitUnion(t *testing.T) {
	assert.Equal(t, []string{"Sheet1!$A$1", "Sheet1!$B$2"}, splitUnion("Sheet1!$A$1,Sheet1!$B$2"))
	assert.Equal(t, []string{"'a,b'!A1"}, splitUnion("'a,b'!A1"))
}

func TestCellReference(t *testing.T) {
	c := NewCell(nil, "Sheet1", 2, 1)
	assert.Equal(t, "B3", c.Name())
	assert.Equal(t, "'Sheet1'!$B$3", c.Reference())

	c = NewCell(nil, "Bob's", 0, 0)
	assert.Equal(t, "'Bob''s'!$A$1", c.Reference())
}
