package yamlio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	yamlv3 "gopkg.in/yaml.v3"

	"github.com/jacobB1290/Stoma-Board-Re-Build-sub001/internal/model"
)

// LoadConfig returns the default configuration overlaid with the YAML file at
// path, if it exists. Absent fields keep their defaults; a missing file is not
// an error. Empty path means defaults only.
func LoadConfig(path string) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yamlv3.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadInto reads the YAML file at path into out. A missing file leaves out
// untouched and reports false.
func LoadInto(path string, out any) (bool, error) {
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yamlv3.Unmarshal(content, out); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}
