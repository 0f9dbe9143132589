package template

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.md templates/manifest.yaml
var files embed.FS

// Artifact kinds with an embedded template.
const (
	KindEpic    = "epic"
	KindFeature = "feature"
	KindStory   = "story"
	KindCode    = "code"
)

// ArtifactSpec describes one embedded template.
type ArtifactSpec struct {
	Kind     string   `yaml:"kind"`
	File     string   `yaml:"file"`
	Required []string `yaml:"required"`
}

// Manifest lists the embedded artifact templates.
type Manifest struct {
	Artifacts []ArtifactSpec `yaml:"artifacts"`
}

var (
	manifestOnce sync.Once
	manifest     *Manifest
	manifestErr  error
)

// LoadManifest parses the embedded manifest once.
func LoadManifest() (*Manifest, error) {
	manifestOnce.Do(func() {
		data, err := files.ReadFile("templates/manifest.yaml")
		if err != nil {
			manifestErr = fmt.Errorf("failed to read artifact manifest: %w", err)
			return
		}
		var m Manifest
		if err := yaml.Unmarshal(data, &m); err != nil {
			manifestErr = fmt.Errorf("failed to parse artifact manifest: %w", err)
			return
		}
		manifest = &m
	})
	return manifest, manifestErr
}

// Spec returns the manifest entry for kind.
func (m *Manifest) Spec(kind string) (ArtifactSpec, bool) {
	for _, a := range m.Artifacts {
		if a.Kind == kind {
			return a, true
		}
	}
	return ArtifactSpec{}, false
}

// RenderArtifact renders the template for kind with variables.
func RenderArtifact(kind string, variables map[string]string) (string, error) {
	m, err := LoadManifest()
	if err != nil {
		return "", err
	}
	spec, ok := m.Spec(kind)
	if !ok {
		return "", fmt.Errorf("unknown artifact kind %q", kind)
	}
	body, err := files.ReadFile("templates/" + spec.File)
	if err != nil {
		return "", fmt.Errorf("failed to read template %s: %w", spec.File, err)
	}
	return Render(string(body), variables), nil
}

// Sections returns the level-2 headings present in a markdown document.
func Sections(markdown string) []string {
	var out []string
	for _, line := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(line, "## ") {
			out = append(out, strings.TrimSpace(strings.TrimPrefix(line, "## ")))
		}
	}
	return out
}

// MissingSections reports which required sections of kind are absent
// from markdown.
func MissingSections(kind, markdown string) ([]string, error) {
	m, err := LoadManifest()
	if err != nil {
		return nil, err
	}
	spec, ok := m.Spec(kind)
	if !ok {
		return nil, fmt.Errorf("unknown artifact kind %q", kind)
	}
	present := make(map[string]bool)
	for _, s := range Sections(markdown) {
		present[strings.ToLower(s)] = true
	}
	var missing []string
	for _, req := range spec.Required {
		if !present[strings.ToLower(req)] {
			missing = append(missing, req)
		}
	}
	return missing, nil
}
