package umbra

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Preferences are the persisted user settings. Every Set method writes the
// file when the value changes; an in-memory Preferences (empty path) never
// touches disk.
type Preferences struct {
	RenderMode       string `json:"render_mode"`
	LightmapsEnabled bool   `json:"lightmaps_enabled"`
	AsyncLightmaps   bool   `json:"async_lightmaps"`
	ShowCustomData   bool   `json:"show_custom_data"`
	ShowInvisible    bool   `json:"show_invisible"`
	LastDirectory    string `json:"last_directory"`

	path string
}

// DefaultPreferences returns in-memory preferences with default values.
func DefaultPreferences() *Preferences {
	return &Preferences{
		RenderMode:       RenderPS.String(),
		LightmapsEnabled: true,
	}
}

// LoadPreferences reads preferences from path. A missing file yields
// defaults bound to path. An unreadable or malformed file yields defaults
// and an error wrapping ErrIO.
func LoadPreferences(path string) (*Preferences, error) {
	p := DefaultPreferences()
	p.path = path

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("read preferences %s: %w: %w", path, ErrIO, err)
	}
	if err := json.Unmarshal(data, p); err != nil {
		d := DefaultPreferences()
		d.path = path
		return d, fmt.Errorf("parse preferences %s: %w: %w", path, ErrIO, err)
	}
	return p, nil
}

// Path returns the file the preferences are saved to.
func (p *Preferences) Path() string {
	return p.path
}

// Mode returns the preferred lighting model.
func (p *Preferences) Mode() RenderMode {
	return ParseRenderMode(p.RenderMode)
}

// Save writes the preferences file. It is a no-op for in-memory preferences.
func (p *Preferences) Save() error {
	if p.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := writeFileAtomic(p.path, data); err != nil {
		return fmt.Errorf("write preferences %s: %w: %w", p.path, ErrIO, err)
	}
	return nil
}

// SetRenderMode records the preferred lighting model.
func (p *Preferences) SetRenderMode(m RenderMode) error {
	return setPref(p, &p.RenderMode, m.String())
}

// SetLightmapsEnabled toggles baked lightmap display.
func (p *Preferences) SetLightmapsEnabled(v bool) error {
	return setPref(p, &p.LightmapsEnabled, v)
}

// SetAsyncLightmaps toggles baking on a worker goroutine.
func (p *Preferences) SetAsyncLightmaps(v bool) error {
	return setPref(p, &p.AsyncLightmaps, v)
}

// SetShowCustomData toggles the custom-data overlay.
func (p *Preferences) SetShowCustomData(v bool) error {
	return setPref(p, &p.ShowCustomData, v)
}

// SetShowInvisible toggles collision outlines for invisible entities.
func (p *Preferences) SetShowInvisible(v bool) error {
	return setPref(p, &p.ShowInvisible, v)
}

// SetLastDirectory records the directory of the last opened file.
func (p *Preferences) SetLastDirectory(dir string) error {
	return setPref(p, &p.LastDirectory, dir)
}

func setPref[T comparable](p *Preferences, field *T, v T) error {
	if *field == v {
		return nil
	}
	*field = v
	if err := p.Save(); err != nil {
		Logger().Warn("preferences not saved", zap.Error(err))
		return err
	}
	return nil
}

// writeFileAtomic writes data to a temporary file beside path and renames
// it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
