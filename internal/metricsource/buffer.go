package metricsource

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// WriteBuffer atomically overwrites the live metrics buffer at path. The
// file is written to a temp sibling first and renamed into place so readers
// never observe a partial write.
func WriteBuffer(path string, samples []Sample) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create buffer directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create buffer temp file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp", "cpu", "ram", "disk"}); err != nil {
		f.Close()
		return err
	}
	for _, s := range samples {
		row := []string{
			s.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatFloat(s.CPU, 'f', -1, 64),
			strconv.FormatFloat(s.Memory, 'f', -1, 64),
			strconv.FormatFloat(s.DiskIO, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace buffer file: %w", err)
	}
	return nil
}

// ReadBuffer loads a previously written live buffer.
func ReadBuffer(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read buffer %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	samples := make([]Sample, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) != 4 {
			return nil, fmt.Errorf("malformed buffer row %v", rec)
		}
		ts, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("parse timestamp %q: %w", rec[0], err)
		}
		cpu, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parse cpu %q: %w", rec[1], err)
		}
		mem, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("parse ram %q: %w", rec[2], err)
		}
		disk, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return nil, fmt.Errorf("parse disk %q: %w", rec[3], err)
		}
		samples = append(samples, Sample{Timestamp: ts, CPU: cpu, Memory: mem, DiskIO: disk})
	}
	return samples, nil
}
