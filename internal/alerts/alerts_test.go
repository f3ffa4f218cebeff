package alerts

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogToCSVAppendsDailyFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "alerts")
	ts := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

	require.NoError(t, LogToCSV(dir, Alert{Timestamp: ts, Kind: "bull", Name: "BTCUSDT", Added: true, Score: 91, Msg: "vol, spike"}))
	require.NoError(t, LogToCSV(dir, Alert{Timestamp: ts, Kind: "bear", Name: "ETHUSDT", Score: 40}))

	f, err := os.Open(filepath.Join(dir, "alerts_20261016.csv"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2026-10-16T09:30:00Z", "bull", "BTCUSDT", "added", "91", "vol, spike"}, rows[0])
	assert.Equal(t, "removed", rows[1][3])
}
