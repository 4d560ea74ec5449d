package render

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FrameRecord is one row of the snapshot metadata file.
type FrameRecord struct {
	SnapshotNumber int
	FileName       string
	TimeTaken      float64
}

// readSnapshotMetadata parses the headerless snapshot_number,file_name,time_taken
// rows written by the capture side.
func readSnapshotMetadata(path string) ([]FrameRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records []FrameRecord
	for line := 1; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read metadata: %w", err)
		}
		if len(row) < 3 {
			return nil, fmt.Errorf("metadata line %d: expected 3 fields, got %d", line, len(row))
		}
		number, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("metadata line %d: snapshot_number: %w", line, err)
		}
		taken, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("metadata line %d: time_taken: %w", line, err)
		}
		records = append(records, FrameRecord{
			SnapshotNumber: number,
			FileName:       strings.TrimSpace(row[1]),
			TimeTaken:      taken,
		})
	}
	return records, nil
}

// countFrameFiles counts regular files in dir other than the metadata file.
// A missing directory holds zero frames.
func countFrameFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == MetadataFileName {
			continue
		}
		count++
	}
	return count, nil
}

func metadataPath(snapshotDir string) string {
	return filepath.Join(snapshotDir, MetadataFileName)
}
