package collection

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// BackupTimeFormat is the timestamp layout used in backup names.
const BackupTimeFormat = "20060102-150405"

// BackupPath returns <dir>/<stem>.bak.<timestamp>.json for the collection
// at path.
func BackupPath(path string, now time.Time) string {
	dir, base := filepath.Split(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, fmt.Sprintf("%s.bak.%s.json", stem, now.Format(BackupTimeFormat)))
}

// Backup copies the file at path byte for byte next to itself and returns
// the backup's path. An existing backup is never overwritten; a numeric
// suffix is added instead.
func Backup(path string, now time.Time) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening collection for backup: %w", err)
	}
	defer src.Close()

	target := BackupPath(path, now)
	var dst *os.File
	for i := 1; ; i++ {
		dst, err = os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			break
		}
		if !os.IsExist(err) || i > 99 {
			return "", fmt.Errorf("creating backup: %w", err)
		}
		target = strings.TrimSuffix(BackupPath(path, now), ".json") + fmt.Sprintf("-%d.json", i)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("writing backup: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("writing backup: %w", err)
	}
	return target, nil
}
