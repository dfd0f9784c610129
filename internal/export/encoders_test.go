package export

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/leapstack-labs/leaptable/pkg/core"
	"github.com/leapstack-labs/leaptable/pkg/datatable"
)

func sampleColumns() []*core.Column {
	return []*core.Column{
		core.NewColumn("name", "Name"),
		core.NewColumn("age", "Age"),
		core.NewColumn("joined", "Joined At"),
	}
}

func sampleRecords() []map[string]any {
	return []map[string]any{
		{"name": "Jane, \"JJ\"", "age": 31, "joined": time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"name": "Bob", "age": 2.5, "joined": nil},
	}
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV{}.Encode(&buf, sampleColumns(), sampleRecords()))

	assert.Equal(t,
		"Name,Age,Joined At\n"+
			"\"Jane, \"\"JJ\"\"\",31,2024-02-01T00:00:00Z\n"+
			"Bob,2.5,\n",
		buf.String())
}

func TestXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, XLSX{}.Encode(&buf, sampleColumns(), sampleRecords()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Name", "Age", "Joined At"}, rows[0])
	assert.Equal(t, "Jane, \"JJ\"", rows[1][0])
	assert.Equal(t, "31", rows[1][1])
	assert.Equal(t, "2.5", rows[2][1])
}

func TestPDF(t *testing.T) {
	records := make([]map[string]any, 0, 120)
	for i := range 120 {
		records = append(records, map[string]any{"name": "Ærøskøbing resident with a rather long name that needs trimming", "age": i})
	}

	var buf bytes.Buffer
	require.NoError(t, PDF{}.Encode(&buf, sampleColumns(), records))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PNG{}.Encode(&buf, sampleColumns(), sampleRecords()))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 3*pngRowHeight+1, img.Bounds().Dy())
	assert.Greater(t, img.Bounds().Dx(), 3*2*pngPadding)
}

func TestRegisterDefaults(t *testing.T) {
	e := datatable.NewExporter()
	RegisterDefaults(e)
	assert.Equal(t, []string{"csv", "image", "pdf", "xlsx"}, e.Formats())

	enc, err := e.Encoder("XLSX")
	require.NoError(t, err)
	assert.Equal(t, "xlsx", enc.Extension())
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", truncateRunes("short", 10))
	assert.Equal(t, "abcd...", truncateRunes("abcdefghij", 7))
}
