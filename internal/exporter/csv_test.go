package exporter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVWriter_Write(t *testing.T) {
	writer := NewCSVWriter(nil)

	tests := []struct {
		name     string
		options  WriteOptions
		validate func(t *testing.T, content []byte)
	}{
		{
			name: "basic write with headers",
			options: WriteOptions{
				Headers: []string{"ncm", "produto"},
				Records: [][]string{{"02071400", "Frango"}, {"84181000", "Refrigeradores"}},
			},
			validate: func(t *testing.T, content []byte) {
				lines := strings.Split(strings.TrimSpace(string(content)), "\n")
				assert.Equal(t, []string{"ncm,produto", "02071400,Frango", "84181000,Refrigeradores"}, lines)
			},
		},
		{
			name: "write with BOM prefix",
			options: WriteOptions{
				Headers:   []string{"pais"},
				Records:   [][]string{{"Japão"}},
				BOMPrefix: true,
			},
			validate: func(t *testing.T, content []byte) {
				require.True(t, bytes.HasPrefix(content, utf8BOM))
				assert.Equal(t, "pais\nJapão\n", string(content[3:]))
			},
		},
		{
			name: "append skips BOM and headers",
			options: WriteOptions{
				Headers:   []string{"pais"},
				Records:   [][]string{{"Chile"}},
				BOMPrefix: true,
				Append:    true,
			},
			validate: func(t *testing.T, content []byte) {
				assert.Equal(t, "Chile\n", string(content))
			},
		},
		{
			name: "semicolon delimiter and quoting",
			options: WriteOptions{
				Headers: []string{"produto", "valor"},
				Records: [][]string{{`Pedaços "in natura"; congelados`, "1,5"}},
				Comma:   ';',
			},
			validate: func(t *testing.T, content []byte) {
				r := csv.NewReader(bytes.NewReader(content))
				r.Comma = ';'
				rows, err := r.ReadAll()
				require.NoError(t, err)
				assert.Equal(t, `Pedaços "in natura"; congelados`, rows[1][0])
				assert.Equal(t, "1,5", rows[1][1])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writer.Write(&buf, tt.options))
			tt.validate(t, buf.Bytes())
		})
	}
}

func TestCSVWriter_WriteFile(t *testing.T) {
	writer := NewCSVWriter(nil)
	path := filepath.Join(t.TempDir(), "reports", "top.csv")

	require.NoError(t, writer.WriteFile(path, WriteOptions{
		Headers:   []string{"ncm"},
		Records:   [][]string{{"02071400"}},
		BOMPrefix: true,
	}))
	require.NoError(t, writer.WriteFile(path, WriteOptions{
		Records: [][]string{{"84181000"}},
		Append:  true,
	}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ncm\n02071400\n84181000\n", string(bytes.TrimPrefix(content, utf8BOM)))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestCSVWriter_WriteErrors(t *testing.T) {
	writer := NewCSVWriter(nil)

	err := writer.Write(failingWriter{}, WriteOptions{BOMPrefix: true})
	assert.ErrorContains(t, err, "BOM")

	err = writer.Write(failingWriter{}, WriteOptions{Headers: []string{"a"}})
	assert.ErrorContains(t, err, "disk full")

	_, err = writer.NewStreamWriter(failingWriter{}, []string{"a"})
	assert.Error(t, err)
}

type closeRecorder struct {
	bytes.Buffer
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestStreamWriter(t *testing.T) {
	out := &closeRecorder{}
	sw, err := NewCSVWriter(nil).NewStreamWriter(out, []string{"ano", "valor"})
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		require.NoError(t, sw.WriteRecord([]string{"2024", formatInt(i)}))
	}
	assert.Equal(t, 1000, sw.Rows())
	require.NoError(t, sw.Close())
	assert.True(t, out.closed)

	rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(out.Bytes(), utf8BOM))).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1001)
	assert.Equal(t, []string{"2024", "999"}, rows[1000])
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "13.40", formatFloat(13.4))
	assert.Equal(t, "0.00", formatFloat(0))
	assert.Equal(t, "-1.50", formatFloat(-1.5))
	assert.Equal(t, "", formatOptional(nil))
	v := 2.345
	assert.Equal(t, "2.35", formatOptional(&v))
	assert.Equal(t, "42", formatInt(42))
}
