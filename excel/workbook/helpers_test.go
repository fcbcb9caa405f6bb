package workbook

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const testSheet = "Sheet1"

// newTestManager returns an empty xlsx manager closed at the end of the test.
func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := New()
	t.Cleanup(func() {
		_ = m.Close()
	})
	return m
}

// fillColumn writes values into column A starting at row 1.
func fillColumn(t *testing.T, f *excelize.File, sheet string, values ...string) {
	t.Helper()
	for i, v := range values {
		if v == "" {
			continue
		}
		name, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellStr(sheet, name, v))
	}
}

func cellText(t *testing.T, f *excelize.File, sheet, name string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, name)
	require.NoError(t, err)
	return v
}
