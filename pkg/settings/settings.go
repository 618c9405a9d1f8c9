package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// envRefPattern matches env-var style references: $NAME or ${NAME} where
// NAME is upper snake case. Workflow template identifiers are lower/kebab
// case by convention, so the two grammars stay apart.
var envRefPattern = regexp.MustCompile(`^\$\{?([A-Z][A-Z0-9_]*)\}?$`)

// Store reads and writes the pflow settings file. Values under the "env"
// section feed the environment-expansion helper; OS environment variables
// with the PFLOW_ prefix override file values.
type Store struct {
	v    *viper.Viper
	path string
}

// DefaultPath returns ~/.pflow/settings.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "pflow", "settings.yaml")
	}
	return filepath.Join(home, ".pflow", "settings.yaml")
}

// Load opens the settings store at path, creating an empty store when the
// file does not exist yet.
func Load(path string) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PFLOW")
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		}
	}
	return &Store{v: v, path: path}, nil
}

// Get returns a settings value by dotted key.
func (s *Store) Get(key string) (any, bool) {
	if !s.v.IsSet(key) {
		return nil, false
	}
	return s.v.Get(key), true
}

// SetEnv stores one env entry (e.g. an API token) under the env section.
func (s *Store) SetEnv(name, value string) {
	s.v.Set("env."+strings.ToUpper(name), value)
}

// UnsetEnv removes an env entry. Viper has no delete, so the section is
// rebuilt without the key.
func (s *Store) UnsetEnv(name string) {
	env := s.EnvSection()
	delete(env, strings.ToUpper(name))
	s.v.Set("env", env)
}

// EnvSection returns a copy of the env section with upper-cased keys.
func (s *Store) EnvSection() map[string]string {
	out := map[string]string{}
	for key, value := range s.v.GetStringMapString("env") {
		out[strings.ToUpper(key)] = value
	}
	return out
}

// LookupEnv resolves NAME against the settings env section first, then the
// process environment.
func (s *Store) LookupEnv(name string) (string, bool) {
	if value, ok := s.EnvSection()[name]; ok {
		return value, true
	}
	return os.LookupEnv(name)
}

// Save writes the settings file, creating parent directories as needed.
func (s *Store) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// ExpandParams replaces env-var style values ($NAME / ${NAME}) in params
// from the settings store or process environment. It returns the expanded
// copy plus the names of parameters whose values were substituted; callers
// record those under the executor's hidden env-param key so they are always
// redacted in persisted output.
//
// References that resolve nowhere are left untouched.
func (s *Store) ExpandParams(params map[string]any) (map[string]any, []string) {
	expanded := make(map[string]any, len(params))
	var fromEnv []string
	for key, value := range params {
		str, ok := value.(string)
		if !ok {
			expanded[key] = value
			continue
		}
		m := envRefPattern.FindStringSubmatch(str)
		if m == nil {
			expanded[key] = value
			continue
		}
		resolved, found := s.LookupEnv(m[1])
		if !found {
			expanded[key] = value
			continue
		}
		expanded[key] = resolved
		fromEnv = append(fromEnv, key)
	}
	return expanded, fromEnv
}
