package replay

import (
	"os"
	"path/filepath"
	"testing"
)

// #region fixture-tests

func TestLoadFixture_YAML(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "threshold_choke.yaml"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if f.Name != "threshold_choke" {
		t.Errorf("expected name=threshold_choke, got %s", f.Name)
	}
	if f.Expression.ID != "joyful_greeting" {
		t.Errorf("expected expression id joyful_greeting, got %s", f.Expression.ID)
	}
	if b, ok := f.Regime["valence"]; !ok || b.Min == nil || *b.Min != 0.4 {
		t.Errorf("expected valence min 0.4, got %+v", f.Regime)
	}
	if f.Expected.ChokeTypes["0"] != "threshold" {
		t.Errorf("expected choke threshold for clause 0, got %v", f.Expected.ChokeTypes)
	}
	req := f.ToRequest()
	if req.Seed == nil || *req.Seed != 42 || req.SampleCount != 2000 {
		t.Errorf("request overrides not carried: %+v", req)
	}
}

func TestLoadFixture_JSONNameFromFile(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "unreachable.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if f.Name != "unreachable" {
		t.Errorf("expected name from file, got %q", f.Name)
	}
	if f.Expected.TriggerRate == nil || f.Expected.TriggerRate.Min != nil || *f.Expected.TriggerRate.Max != 0 {
		t.Errorf("unexpected trigger band %+v", f.Expected.TriggerRate)
	}
}

func TestLoadDir_SortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"b.yaml":    "expression: {id: b}\n",
		"a.json":    `{"expression": {"id": "a"}}`,
		"notes.txt": "ignored",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	fixtures, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(fixtures) != 2 || fixtures[0].Name != "a" || fixtures[1].Name != "b" {
		t.Fatalf("unexpected fixtures: %+v", fixtures)
	}
}

func TestLoadFixture_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFixture(path); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := LoadFixture(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected read error")
	}
}

func TestFixtureRange(t *testing.T) {
	lo, hi := 0.1, 0.2
	r := FixtureRange{Min: &lo, Max: &hi}
	if !r.Contains(0.1) || !r.Contains(0.2) || r.Contains(0.25) {
		t.Errorf("bounds not inclusive: %s", r)
	}
	if !(FixtureRange{}).Contains(-5) {
		t.Error("open range must contain everything")
	}
	if got := (FixtureRange{Max: &hi}).String(); got != "[-inf, 0.2]" {
		t.Errorf("unexpected rendering %s", got)
	}
}

// #endregion fixture-tests
