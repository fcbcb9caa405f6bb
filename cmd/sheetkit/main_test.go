package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opdss/sheetkit/excel/workbook"
)

func TestBuildAndCell(t *testing.T) {
	dir := t.TempDir()
	layouts := filepath.Join(dir, "layouts")
	require.NoError(t, os.MkdirAll(layouts, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(layouts, "people.yaml"), []byte(
		"columns:\n  - field: id\n    title: ID\n  - field: name\n    title: Name\n    default: '-'\n"), 0o600))
	rows := filepath.Join(dir, "rows.yaml")
	require.NoError(t, os.WriteFile(rows, []byte("- {id: 1, name: Ann}\n- {id: 2}\n"), 0o600))

	buildCfg.Layouts = layouts
	out := filepath.Join(dir, "people.xlsx")
	var buf bytes.Buffer
	buildCmd.SetOut(&buf)
	require.NoError(t, cmdBuild(buildCmd, []string{"people", rows, out}))
	assert.Equal(t, out+"\n", buf.String())

	buf.Reset()
	cellCmd.SetOut(&buf)
	require.NoError(t, cmdCell(cellCmd, []string{out, "A1:B3"}))
	assert.Equal(t, "'Sheet1'!$A$1\tstring\tID\n"+
		"'Sheet1'!$B$1\tstring\tName\n"+
		"'Sheet1'!$A$2\tfloat64\t1\n"+
		"'Sheet1'!$B$2\tstring\tAnn\n"+
		"'Sheet1'!$A$3\tfloat64\t2\n"+
		"'Sheet1'!$B$3\tstring\t-\n", buf.String())

	buf.Reset()
	err := cmdCell(cellCmd, []string{out, "B1:C1"})
	require.Error(t, err)
	assert.True(t, workbook.IsNotFound(err))
	assert.Contains(t, err.Error(), "B1:C1")
	assert.Empty(t, buf.String())

	cellCfg.Blank = true
	defer func() {
		cellCfg.Blank = false
	}()
	require.NoError(t, cmdCell(cellCmd, []string{out, "B1:C1"}))
	assert.Equal(t, "'Sheet1'!$B$1\tstring\tName\n"+
		"'Sheet1'!$C$1\tstring\t\n", buf.String())
}

func TestReadRowsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": 1, "amount": 2.5}]`), 0o600))
	rows, err := readRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2.5, rows[0]["amount"])

	_, err = readRows(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
