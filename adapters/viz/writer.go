package viz

import (
	"encoding/json"
	"os"
	"path/filepath"

	"clinstat/internal/errors"
)

// ChartsFile is the file WriteCharts creates in the figures directory
const ChartsFile = "charts.json"

// WriteCharts writes the chart set to dir/charts.json and returns the path
func WriteCharts(dir string, set *ChartSet) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create figures directory %s", dir)
	}
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encode charts")
	}
	path := filepath.Join(dir, ChartsFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}
