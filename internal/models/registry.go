package models

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultModelsYAML []byte

// supportedSchema is the models file schema range this build understands.
const supportedSchema = "^1.0.0"

// File is the on-disk layout of a models file.
type File struct {
	SchemaVersion string `yaml:"schema_version"`
	// CharsPerToken fills in entries a model leaves out.
	CharsPerToken   map[ContentType]float64 `yaml:"chars_per_token"`
	MessageOverhead *int                    `yaml:"message_overhead"`
	Models          []Profile               `yaml:"models"`
}

// Registry is a read-only lookup of model profiles. Build it once at startup
// and inject it where token-cost tables are needed.
type Registry struct {
	profiles map[string]*Profile
	ids      []string
}

// NewRegistry validates profiles and builds a registry from them.
func NewRegistry(profiles ...Profile) (*Registry, error) {
	r := &Registry{profiles: make(map[string]*Profile, len(profiles))}
	for _, p := range profiles {
		p := p.clone()
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.profiles[p.ID]; dup {
			return nil, newConfigError(p.ID, "duplicate model id", nil)
		}
		r.profiles[p.ID] = &p
	}
	r.ids = sortedIDs(r.profiles)
	return r, nil
}

// Parse builds a registry from models file YAML.
func Parse(data []byte) (*Registry, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, newConfigError("", "parse models file", err)
	}
	if err := checkSchema(f.SchemaVersion); err != nil {
		return nil, err
	}

	profiles := make([]Profile, 0, len(f.Models))
	for _, p := range f.Models {
		if p.CharsPerToken == nil {
			p.CharsPerToken = make(map[ContentType]float64, len(f.CharsPerToken))
		}
		for ct, v := range f.CharsPerToken {
			if _, ok := p.CharsPerToken[ct]; !ok {
				p.CharsPerToken[ct] = v
			}
		}
		if p.MessageOverhead == 0 && f.MessageOverhead != nil {
			p.MessageOverhead = *f.MessageOverhead
		}
		if p.DisplayName == "" {
			p.DisplayName = p.ID
		}
		profiles = append(profiles, p)
	}
	return NewRegistry(profiles...)
}

// LoadFile reads a models file from disk.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newConfigError("", fmt.Sprintf("read models file %s", path), err)
	}
	return Parse(data)
}

// Default returns the registry built from the embedded models file.
func Default() (*Registry, error) {
	return Parse(defaultModelsYAML)
}

// DefaultYAML returns a copy of the embedded models file.
func DefaultYAML() []byte {
	return append([]byte(nil), defaultModelsYAML...)
}

// Get resolves a model id. Unknown ids fail with *ConfigurationError.
func (r *Registry) Get(id string) (*Profile, error) {
	if r == nil {
		return nil, newConfigError(id, "no model registry configured", nil)
	}
	p, ok := r.profiles[id]
	if !ok {
		return nil, newConfigError(id, "unknown model", nil)
	}
	return p, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, err := r.Get(id)
	return err == nil
}

// List returns all profiles ordered by id.
func (r *Registry) List() []Profile {
	out := make([]Profile, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.profiles[id].clone())
	}
	return out
}

// IDs returns the registered model ids ordered lexically.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.ids...)
}

func checkSchema(version string) error {
	if version == "" {
		version = "1.0.0"
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return newConfigError("", fmt.Sprintf("invalid schema_version %q", version), err)
	}
	c, err := semver.NewConstraint(supportedSchema)
	if err != nil {
		return newConfigError("", "invalid schema constraint", err)
	}
	if !c.Check(v) {
		return newConfigError("", fmt.Sprintf("unsupported schema_version %s (want %s)", v, supportedSchema), nil)
	}
	return nil
}
