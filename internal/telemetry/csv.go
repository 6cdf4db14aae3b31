package telemetry

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var csvHeader = []string{"timestamp", "pilgrim_id", "temp", "ground", "nusuk", "sos", "lost_id"}

// WriteCSV writes readings with a header row.
func WriteCSV(w io.Writer, rows []Reading) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Timestamp,
			r.PilgrimID,
			strconv.FormatFloat(r.Temp, 'f', 2, 64),
			r.Ground,
			r.Nusuk,
			boolString(r.SOS),
			r.LostID,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a dataset written by WriteCSV. Columns are matched by
// header name so column order may differ.
func ReadCSV(r io.Reader) ([]Reading, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range []string{"timestamp", "pilgrim_id", "temp", "ground", "nusuk"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}
	get := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var rows []Reading
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		temp, err := strconv.ParseFloat(get(rec, "temp"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: temp: %w", line, err)
		}
		rows = append(rows, Reading{
			Timestamp: get(rec, "timestamp"),
			PilgrimID: get(rec, "pilgrim_id"),
			Temp:      temp,
			Ground:    get(rec, "ground"),
			Nusuk:     get(rec, "nusuk"),
			SOS:       get(rec, "sos") == "True",
			LostID:    get(rec, "lost_id"),
		})
	}
}

// LoadCSV reads a dataset file.
func LoadCSV(path string) ([]Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// SaveCSV writes a dataset file.
func SaveCSV(path string, rows []Reading) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func boolString(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
