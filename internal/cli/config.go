package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/mandelsoft/vfs/pkg/vfs"
	"gopkg.in/yaml.v3"
)

// Settings is the persistence setup of a run. Flags win over the config file,
// which wins over the defaults.
type Settings struct {
	DataDir     string `yaml:"data_dir"`
	Storage     string `yaml:"storage"`
	Serializer  string `yaml:"serializer"`
	Debug       bool   `yaml:"debug"`
	KeyTemplate string `yaml:"key_template"`
}

// Backend names understood besides the storage registry.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

func defaultSettings(dataDir string) Settings {
	return Settings{
		DataDir:    dataDir,
		Storage:    BackendFile,
		Serializer: "json",
	}
}

// loadConfigFile reads YAML settings from path. A missing file is not an
// error when the path was not given explicitly.
func loadConfigFile(fsys vfs.FileSystem, path string, required bool) (Settings, error) {
	var out Settings
	if strings.TrimSpace(path) == "" {
		return out, nil
	}
	f, err := fsys.Open(path)
	if err != nil {
		if !required && (errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err)) {
			return out, nil
		}
		return out, fmt.Errorf("read config %q: %w", path, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return out, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("parse config %q: %w", path, err)
	}
	return out, nil
}

// merge overlays the non-zero fields of over onto base.
func (base Settings) merge(over Settings) Settings {
	if over.DataDir != "" {
		base.DataDir = over.DataDir
	}
	if over.Storage != "" {
		base.Storage = over.Storage
	}
	if over.Serializer != "" {
		base.Serializer = over.Serializer
	}
	if over.Debug {
		base.Debug = true
	}
	if over.KeyTemplate != "" {
		base.KeyTemplate = over.KeyTemplate
	}
	return base
}
