package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"basic-cleaning/models"
)

func TestDecodeCSV(t *testing.T) {
	in := "\ufeffid,name,price,last_review\n1,\"Loft, sunny\",150,2019-05-21\n2,Room,80,\n"
	ds, err := DecodeCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "price", "last_review"}, ds.Columns)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, []string{"1", "Loft, sunny", "150", "2019-05-21"}, ds.Rows[0])
	assert.Equal(t, "", ds.Rows[1][3])
}

func TestDecodeCSVHeaderOnly(t *testing.T) {
	ds, err := DecodeCSV(strings.NewReader("price,last_review\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Len())
	assert.Equal(t, []string{"price", "last_review"}, ds.Columns)
}

func TestDecodeCSVEmpty(t *testing.T) {
	_, err := DecodeCSV(strings.NewReader(""))
	require.Error(t, err)
}

func TestDecodeCSVRaggedRow(t *testing.T) {
	_, err := DecodeCSV(strings.NewReader("a,b\n1,2\n3\n"))
	require.Error(t, err)
}

func TestEncodeCSVNoIndexColumn(t *testing.T) {
	ds := models.NewDataset([]string{"price", "last_review"})
	ds.Rows = [][]string{{"10", "2019-01-01"}, {"50", ""}}

	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, ds))
	assert.Equal(t, "price,last_review\n10,2019-01-01\n50,\n", buf.String())
}

func TestWriteReadCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "clean_sample.csv")
	ds := models.NewDataset([]string{"id", "price", "last_review"})
	ds.Rows = [][]string{{"1", "10", "2019-01-01"}, {"2", "50", ""}}

	require.NoError(t, WriteCSV(path, ds))
	got, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, ds.Columns, got.Columns)
	assert.Equal(t, ds.Rows, got.Rows)
}

func TestReadCSVMissingFile(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
