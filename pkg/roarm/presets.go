package roarm

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// DefaultPresetsFile is where named positions are stored.
const DefaultPresetsFile = "positions.json"

// Preset is a named arm pose. Angles are degrees; the phone-holder angle
// is only present when the attachment reported one at save time.
type Preset struct {
	Base     float64  `json:"b"`
	Shoulder float64  `json:"s"`
	Elbow    float64  `json:"e"`
	Hand     float64  `json:"t"`
	Phone    *float64 `json:"p,omitempty"`
}

// PresetFromSnapshot converts a telemetry reading into a storable preset.
func PresetFromSnapshot(snap Snapshot) Preset {
	p := Preset{
		Base:     snap.Base,
		Shoulder: snap.Shoulder,
		Elbow:    snap.Elbow,
		Hand:     snap.Hand,
	}
	if snap.HasPhone {
		phone := snap.Phone
		p.Phone = &phone
	}
	return p
}

// PresetStore is a name-keyed collection of presets backed by a JSON file.
type PresetStore struct {
	path    string
	presets map[string]Preset
}

// LoadPresets reads the store at path. A missing file yields an empty
// store; a corrupt file is an error.
func LoadPresets(path string) (*PresetStore, error) {
	if path == "" {
		path = DefaultPresetsFile
	}
	ps := &PresetStore{path: path, presets: map[string]Preset{}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ps, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read presets file: %w", err)
	}
	if err := json.Unmarshal(data, &ps.presets); err != nil {
		return nil, fmt.Errorf("parse presets JSON: %w", err)
	}
	return ps, nil
}

// Save writes the store back to its file.
func (ps *PresetStore) Save() error {
	data, err := json.MarshalIndent(ps.presets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ps.path, data, 0644)
}

// Get returns a preset by name.
func (ps *PresetStore) Get(name string) (Preset, bool) {
	p, ok := ps.presets[name]
	return p, ok
}

// Put adds or replaces a preset.
func (ps *PresetStore) Put(name string, p Preset) {
	ps.presets[name] = p
}

// Delete removes a preset and reports whether it existed.
func (ps *PresetStore) Delete(name string) bool {
	if _, ok := ps.presets[name]; !ok {
		return false
	}
	delete(ps.presets, name)
	return true
}

// Names returns all preset names, sorted.
func (ps *PresetStore) Names() []string {
	names := make([]string, 0, len(ps.presets))
	for name := range ps.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of stored presets.
func (ps *PresetStore) Len() int {
	return len(ps.presets)
}
