package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"MarketDigest/internal/model"
)

// FileName returns the report file name for the given day.
func FileName(t time.Time) string {
	return t.Format(model.DateLayout) + "_多标的分析报告.md"
}

// Save writes content under dir, creating it if needed, and returns the path.
// A report for the same day is overwritten.
func Save(dir, content string, t time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}
	path := filepath.Join(dir, FileName(t))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
