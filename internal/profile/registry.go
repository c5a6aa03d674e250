// Package profile manages named aggregation presets (analyst weights,
// verdict thresholds, confidence tuning) loaded from a YAML file that
// can be edited while the engine runs. Edits apply on the next cycle;
// a file that fails validation keeps the previous snapshot.
package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"aurum/internal/decision"
	"aurum/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Profile is one validated aggregation preset.
type Profile struct {
	ID          string
	Description string
	Aggregation decision.Config
}

// Snapshot is the published profile set. Copies are safe to hold across
// reloads.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Active   string
	Profiles map[string]Profile
}

// ChangeListener fires after a successful reload.
type ChangeListener func(Snapshot)

// Registry watches the profiles file and serves the current snapshot.
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

type fileConfig struct {
	Active   string                    `yaml:"active"`
	Profiles map[string]map[string]any `yaml:"profiles"`
}

// profileSchema bounds every numeric knob before mapstructure decoding,
// so a fat-fingered weight never reaches the aggregator.
var profileSchema = mustCompileSchema(map[string]any{
	"type":     "object",
	"required": []any{"weights", "buy_threshold", "sell_threshold"},
	"properties": map[string]any{
		"description": map[string]any{"type": "string"},
		"weights": map[string]any{
			"type": "object",
			"additionalProperties": map[string]any{
				"type": "number", "minimum": 0, "maximum": 2,
			},
		},
		"default_weight": map[string]any{"type": "number", "minimum": 0},
		"buy_threshold":  map[string]any{"type": "number", "exclusiveMinimum": 0},
		"sell_threshold": map[string]any{"type": "number", "exclusiveMaximum": 0},
		"confidence": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"base":          map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
				"per_agreement": map[string]any{"type": "integer", "minimum": 0},
				"macro_align":   map[string]any{"type": "integer"},
				"macro_contra":  map[string]any{"type": "integer"},
				"floor":         map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
				"cap":           map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
			},
		},
	},
})

// NewRegistry reads the profiles file and watches it for updates.
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("profile registry requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read profiles failed: %w", err)
	}
	r := &Registry{path: path, v: v}
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("profile reload failed, keeping previous set: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot returns the current profile set.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Active returns the profile the engine aggregates with.
func (r *Registry) Active() Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot.Profiles[r.snapshot.Active]
}

// Profile returns one preset by ID.
func (r *Registry) Profile(id string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.snapshot.Profiles[strings.TrimSpace(id)]
	return p, ok
}

// Subscribe registers a listener invoked on each successful reload.
func (r *Registry) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) reload() error {
	cfg, err := readProfilesFile(r.path)
	if err != nil {
		return err
	}
	if len(cfg.Profiles) == 0 {
		return fmt.Errorf("profiles file %s defines no profiles", r.path)
	}
	profiles := make(map[string]Profile, len(cfg.Profiles))
	for name, raw := range cfg.Profiles {
		p, err := buildProfile(name, raw)
		if err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
		profiles[p.ID] = p
	}
	active := strings.TrimSpace(cfg.Active)
	if active == "" {
		active = "default"
	}
	if _, ok := profiles[active]; !ok {
		return fmt.Errorf("active profile %q is not defined", active)
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Active:   active,
		Profiles: profiles,
	}
	r.mu.Unlock()
	logger.Infof("Profile registry loaded %d profiles from %s (active=%s)",
		len(profiles), filepath.Base(r.path), active)
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer safeRecover("profile listener")
			cb(snap)
		}(fn)
	}
}

func buildProfile(name string, raw map[string]any) (Profile, error) {
	// The schema validator expects json-decoded values, not yaml ones.
	encoded, err := json.Marshal(raw)
	if err != nil {
		return Profile{}, err
	}
	var jsonRaw any
	if err := json.Unmarshal(encoded, &jsonRaw); err != nil {
		return Profile{}, err
	}
	if err := profileSchema.Validate(jsonRaw); err != nil {
		return Profile{}, err
	}
	var body struct {
		Description     string `mapstructure:"description"`
		decision.Config `mapstructure:",squash"`
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &body,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return Profile{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Profile{}, err
	}
	if err := body.Config.Validate(); err != nil {
		return Profile{}, err
	}
	return Profile{
		ID:          strings.TrimSpace(name),
		Description: strings.TrimSpace(body.Description),
		Aggregation: body.Config,
	}, nil
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		Active:   src.Active,
		Profiles: make(map[string]Profile, len(src.Profiles)),
	}
	for id, p := range src.Profiles {
		dst.Profiles[id] = p
	}
	return dst
}

func safeRecover(tag string) {
	if rec := recover(); rec != nil {
		logger.Errorf("%s panic: %v", tag, rec)
	}
}

func mustCompileSchema(data map[string]any) *jsonschema.Schema {
	raw, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("profile.json", strings.NewReader(string(raw))); err != nil {
		panic(err)
	}
	schema, err := compiler.Compile("profile.json")
	if err != nil {
		panic(err)
	}
	return schema
}

func readProfilesFile(path string) (fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read profiles failed: %w", err)
	}
	var cfg fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return fileConfig{}, fmt.Errorf("parse profiles failed: %w", err)
	}
	return cfg, nil
}
