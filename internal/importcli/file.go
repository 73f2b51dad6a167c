package importcli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/okian/powerwatch/internal/domain/model"
)

var fileDate = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// ReadRows decodes a JSON array of import rows.
func ReadRows(path string) ([]model.ImportRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var rows []model.ImportRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyFile)
	}
	return rows, nil
}

// DateFor returns override when set, or the first YYYY-MM-DD found in the
// file's base name.
func DateFor(path, override string) (model.Date, error) {
	raw := override
	if raw == "" {
		raw = fileDate.FindString(filepath.Base(path))
	}
	if raw == "" {
		return "", fmt.Errorf("%s: %w", path, ErrNoDate)
	}
	if _, err := model.ParseDate(raw); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return model.Date(raw), nil
}
