package settings

import (
	"path/filepath"
	"reflect"
	"sort"
	"testing"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Load(filepath.Join(t.TempDir(), "settings.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestLoadMissingFileIsEmptyStore(t *testing.T) {
	store := tempStore(t)
	if _, ok := store.Get("anything"); ok {
		t.Error("empty store should have no values")
	}
}

func TestSetEnvAndSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	store.SetEnv("replicate_api_token", "r8_xxx")
	if err := store.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload error: %v", err)
	}
	if value, ok := reloaded.LookupEnv("REPLICATE_API_TOKEN"); !ok || value != "r8_xxx" {
		t.Errorf("LookupEnv = %q, %v", value, ok)
	}
}

func TestUnsetEnv(t *testing.T) {
	store := tempStore(t)
	store.SetEnv("KEY_ONE", "1")
	store.SetEnv("KEY_TWO", "2")
	store.UnsetEnv("KEY_ONE")
	env := store.EnvSection()
	if _, ok := env["KEY_ONE"]; ok {
		t.Error("KEY_ONE should be removed")
	}
	if env["KEY_TWO"] != "2" {
		t.Errorf("env = %v", env)
	}
}

func TestLookupEnvFallsBackToProcessEnv(t *testing.T) {
	t.Setenv("PFLOW_TEST_FALLBACK", "from-os")
	store := tempStore(t)
	if value, ok := store.LookupEnv("PFLOW_TEST_FALLBACK"); !ok || value != "from-os" {
		t.Errorf("LookupEnv = %q, %v", value, ok)
	}
}

func TestSettingsEnvWinsOverProcessEnv(t *testing.T) {
	t.Setenv("PFLOW_TEST_PRIORITY", "os-value")
	store := tempStore(t)
	store.SetEnv("PFLOW_TEST_PRIORITY", "settings-value")
	if value, _ := store.LookupEnv("PFLOW_TEST_PRIORITY"); value != "settings-value" {
		t.Errorf("LookupEnv = %q, want settings to win", value)
	}
}

func TestExpandParams(t *testing.T) {
	t.Setenv("OS_ONLY_TOKEN", "os-secret")
	store := tempStore(t)
	store.SetEnv("SLACK_TOKEN", "xoxb-123")

	params := map[string]any{
		"channel":   "#general",
		"token":     "$SLACK_TOKEN",
		"bearer":    "${OS_ONLY_TOKEN}",
		"missing":   "$NOT_DEFINED_ANYWHERE",
		"not_a_ref": "$lowercase",
		"count":     3,
	}
	expanded, fromEnv := store.ExpandParams(params)

	want := map[string]any{
		"channel":   "#general",
		"token":     "xoxb-123",
		"bearer":    "os-secret",
		"missing":   "$NOT_DEFINED_ANYWHERE",
		"not_a_ref": "$lowercase",
		"count":     3,
	}
	if !reflect.DeepEqual(expanded, want) {
		t.Errorf("expanded = %v, want %v", expanded, want)
	}
	sort.Strings(fromEnv)
	if !reflect.DeepEqual(fromEnv, []string{"bearer", "token"}) {
		t.Errorf("fromEnv = %v", fromEnv)
	}
}
