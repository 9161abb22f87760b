package audit

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ExportFile converts the JSONL log at inputPath into a CSV file at outputPath.
// It returns the number of events written.
func ExportFile(inputPath string, outputPath string) (int, error) {
	in, err := os.Open(inputPath)
	if err != nil {
		return 0, fmt.Errorf("open audit log: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("create csv: %w", err)
	}
	defer out.Close()

	return Export(in, out)
}

// Export streams JSONL events from r to w as CSV with a header row.
// Blank lines are skipped; a malformed line aborts with its line number.
func Export(r io.Reader, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}

	n, line := 0, 0
	s := bufio.NewScanner(r)
	for s.Scan() {
		line++
		b := s.Bytes()
		if len(b) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(b, &ev); err != nil {
			return n, fmt.Errorf("parse audit line %d: %w", line, err)
		}
		if err := cw.Write(ev.row()); err != nil {
			return n, fmt.Errorf("write csv row: %w", err)
		}
		n++
	}
	if err := s.Err(); err != nil {
		return n, fmt.Errorf("scan audit log: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, fmt.Errorf("flush csv: %w", err)
	}
	return n, nil
}
