// File: internal/alerts/alerts.go
package alerts

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type Alert struct {
	Timestamp time.Time
	Kind      string // bull | bear
	Name      string
	Added     bool
	Score     float64
	Msg       string
}

func (a Alert) change() string {
	if a.Added {
		return "added"
	}
	return "removed"
}

// LogToCSV appends a single alert row into dir/alerts_YYYYMMDD.csv
func LogToCSV(dir string, alert Alert) error {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	filename := filepath.Join(dir, fmt.Sprintf("alerts_%s.csv", alert.Timestamp.Format("20060102")))
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	row := []string{
		alert.Timestamp.Format(time.RFC3339),
		alert.Kind,
		alert.Name,
		alert.change(),
		fmt.Sprintf("%.0f", alert.Score),
		alert.Msg,
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
