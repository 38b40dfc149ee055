package export

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/pintmap/internal/model"
)

// Manifest describes one run and the files it produced.
type Manifest struct {
	Run       model.Run  `yaml:"run"`
	Artifacts []Artifact `yaml:"artifacts"`
}

// WriteManifest writes a YAML manifest for run.
func WriteManifest(path string, run model.Run, artifacts []Artifact) error {
	data, err := yaml.Marshal(Manifest{Run: run, Artifacts: artifacts})
	if err != nil {
		return eris.Wrap(err, "export: marshal manifest")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return eris.Wrapf(err, "export: write manifest %s", path)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, eris.Wrapf(err, "export: read manifest %s", path)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "export: parse manifest %s", path)
	}
	return &m, nil
}
