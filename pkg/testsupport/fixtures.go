package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"gopkg.in/yaml.v3"
)

// Person is one directory entry of the shared people fixture.
type Person struct {
	CN          string   `yaml:"cn" json:"cn"`
	LastName    string   `yaml:"lastname" json:"lastname"`
	Shell       string   `yaml:"shell" json:"shell"`
	Phone       []string `yaml:"phone" json:"phone"`
	Home        string   `yaml:"home" json:"home"`
	Description string   `yaml:"description" json:"description"`
}

// Params returns p as service params, omitting empty values.
func (p Person) Params() map[string]any {
	params := map[string]any{"cn": p.CN}
	set := func(k, v string) {
		if v != "" {
			params[k] = v
		}
	}
	set("lastname", p.LastName)
	set("shell", p.Shell)
	set("home", p.Home)
	set("description", p.Description)
	if len(p.Phone) > 0 {
		params["phone"] = append([]string(nil), p.Phone...)
	}
	return params
}

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureYAML loads YAML test data from a fixture file and unmarshals it.
func LoadFixtureYAML(t *testing.T, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := yaml.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal YAML fixture from %s: %v", path, err)
	}
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
func LoadFixtureJSON(t *testing.T, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// People loads the shared people fixture: four people named person0..person3 plus
// jack and sam.
func People(t *testing.T) []Person {
	t.Helper()

	var doc struct {
		People []Person `yaml:"people"`
	}
	LoadFixtureYAML(t, SharedFixturePath("people.yaml"), &doc)
	if len(doc.People) == 0 {
		t.Fatal("people fixture is empty")
	}
	return doc.People
}

// TempFile creates a temporary file with the given content, removed when the test ends.
func TempFile(t *testing.T, pattern string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), pattern)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	return path
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// SharedFixturePath points at a fixture stored with this package, so tests in any
// package can load it.
func SharedFixturePath(filename string) string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return FixturePath(filename)
	}
	return filepath.Join(filepath.Dir(file), "testdata", filename)
}
