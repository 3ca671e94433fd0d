package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/bruceeconomista/balanca-comercial-sc-v2/internal/errors"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/store"
	"github.com/bruceeconomista/balanca-comercial-sc-v2/internal/trade"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "nested", "balanca.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func exportRecords() []trade.Record {
	return []trade.Record{
		{Flow: trade.FlowExport, Year: 2023, Month: 1, NCM: "02071400", Product: "Pedaços de frango", Country: "China", UF: "SC", FOB: 1000, NetWeight: 500},
		{Flow: trade.FlowExport, Year: 2024, Month: 1, NCM: "02071400", Product: "Pedaços de frango", Country: "Japão", UF: "SC", FOB: 1500, NetWeight: 600},
		{Flow: trade.FlowExport, Year: 2024, Month: 2, NCM: "84181000", Product: "Refrigeradores", Country: "Estados Unidos", UF: "SC", FOB: 2000, NetWeight: 100},
	}
}

func fileRecord(id, name, checksum string) store.FileRecord {
	return store.FileRecord{
		ID: id, Name: name, Flow: trade.FlowExport, Checksum: checksum,
		RowsKept: 3, RowsSkipped: 1, IngestedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStore_ReplaceAndLoad(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.ReplaceFileRecords(ctx, fileRecord("f1", "EXP_2024.csv", "abc"), exportRecords()))

	got, err := s.LoadRecords(ctx, trade.Filter{})
	require.NoError(t, err)
	assert.Equal(t, exportRecords(), got)

	ingested, err := s.IsFileIngested(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ingested)

	ingested, err = s.IsFileIngested(ctx, "zzz")
	require.NoError(t, err)
	assert.False(t, ingested)
}

func TestStore_ReplaceIsPerFileName(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	records := exportRecords()
	require.NoError(t, s.ReplaceFileRecords(ctx, fileRecord("f1", "EXP_2024.csv", "v1"), records))
	require.NoError(t, s.ReplaceFileRecords(ctx, fileRecord("f2", "EXP_2023.csv", "other"), records[:1]))

	// a new version of the same file replaces only its own rows
	second := fileRecord("f3", "EXP_2024.csv", "v2")
	second.IngestedAt = second.IngestedAt.Add(time.Hour)
	require.NoError(t, s.ReplaceFileRecords(ctx, second, records[2:]))

	got, err := s.LoadRecords(ctx, trade.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []trade.Record{records[0], records[2]}, got)

	ingested, err := s.IsFileIngested(ctx, "v1")
	require.NoError(t, err)
	assert.False(t, ingested)

	files, err := s.ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "f3", files[0].ID, "most recent first")
	assert.Equal(t, "EXP_2024.csv", files[0].Name)
	assert.Equal(t, trade.FlowExport, files[0].Flow)
	assert.True(t, second.IngestedAt.Equal(files[0].IngestedAt))
}

func TestStore_LoadRecordsFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.ReplaceFileRecords(ctx, fileRecord("f1", "EXP.csv", "abc"), exportRecords()))

	tests := []struct {
		name   string
		filter trade.Filter
		want   int
	}{
		{"flow", trade.Filter{Flow: trade.FlowImport}, 0},
		{"year", trade.Filter{Years: []int{2024}}, 2},
		{"months", trade.Filter{Months: []int{1}}, 2},
		{"uf lower case", trade.Filter{UFs: []string{"sc"}}, 3},
		{"ncm prefix", trade.Filter{NCMPrefix: "8418"}, 1},
		{"country without accent", trade.Filter{Countries: []string{"japao"}}, 1},
		{"combined", trade.Filter{Years: []int{2024}, Countries: []string{"china"}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.LoadRecords(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.ReplaceFileRecords(ctx, fileRecord("f1", "EXP.csv", "abc"), nil)
	assert.True(t, errors.Is(err, store.ErrNoRecords))

	err = s.ReplaceFileRecords(ctx, store.FileRecord{Name: "x"}, exportRecords())
	var appErr *apierrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apierrors.ErrTypeValidation, appErr.Type)

	// the CHECK constraint rejects the whole batch
	bad := exportRecords()
	bad[1].FOB = -1
	err = s.ReplaceFileRecords(ctx, fileRecord("f1", "EXP.csv", "abc"), bad)
	require.Error(t, err)

	got, err := s.LoadRecords(ctx, trade.Filter{})
	require.NoError(t, err)
	assert.Empty(t, got, "failed batch is rolled back")

	_, err = New("")
	assert.Error(t, err)
}
