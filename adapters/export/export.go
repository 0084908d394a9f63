package export

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"clinstat/domain/report"
	"clinstat/internal/errors"

	"gopkg.in/yaml.v3"
)

// File names written by WriteAll
const (
	JSONFile = "analysis_results.json"
	YAMLFile = "analysis_results.yaml"
)

// EncodeJSON writes the report as indented JSON
func EncodeJSON(w io.Writer, r *report.Report) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encode report as json")
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return errors.Wrap(err, "indent report json")
	}
	out.WriteByte('\n')
	_, err = w.Write(out.Bytes())
	return err
}

// EncodeYAML writes the same document as EncodeJSON in YAML block style. Key order
// follows the JSON encoding so both files list results in assembly order.
func EncodeYAML(w io.Writer, r *report.Report) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encode report as json")
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return errors.Wrap(err, "convert report to yaml")
	}
	blockStyle(&doc)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return errors.Wrap(err, "encode report as yaml")
	}
	return enc.Close()
}

// blockStyle drops the flow style and quoting inherited from the JSON source. The
// encoder still quotes strings that would otherwise read back as another type.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// WriteJSON writes the report to path
func WriteJSON(path string, r *report.Report) error {
	return writeFile(path, r, EncodeJSON)
}

// WriteYAML writes the report to path
func WriteYAML(path string, r *report.Report) error {
	return writeFile(path, r, EncodeYAML)
}

func writeFile(path string, r *report.Report, encode func(io.Writer, *report.Report) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := encode(f, r); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return f.Close()
}
