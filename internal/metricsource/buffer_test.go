package metricsource

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestBuffer_WriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "live_buffer.csv")

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	in := []Sample{
		{Timestamp: base, CPU: 42.5, Memory: 60.1, DiskIO: 1024},
		{Timestamp: base.Add(5 * time.Second), CPU: 43, Memory: 60.2, DiskIO: 2048},
	}

	if err := WriteBuffer(path, in); err != nil {
		t.Fatalf("WriteBuffer: %v", err)
	}

	out, err := ReadBuffer(path)
	if err != nil {
		t.Fatalf("ReadBuffer: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d samples, want %d", len(out), len(in))
	}
	for i := range in {
		if !out[i].Timestamp.Equal(in[i].Timestamp) || out[i].CPU != in[i].CPU ||
			out[i].Memory != in[i].Memory || out[i].DiskIO != in[i].DiskIO {
			t.Errorf("sample %d = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestWriteBuffer_LeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "buffer.csv")

	if err := WriteBuffer(path, []Sample{{Timestamp: time.Now(), CPU: 1}}); err != nil {
		t.Fatalf("WriteBuffer: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after atomic write")
	}
}

func TestReadBuffer_Missing(t *testing.T) {
	_, err := ReadBuffer(filepath.Join(t.TempDir(), "absent.csv"))
	if !os.IsNotExist(err) {
		t.Fatalf("error = %v, want not-exist", err)
	}
}
