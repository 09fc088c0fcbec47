// Package content loads the static catalog the setup screen offers players.
package content

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Race is a playable race offered at character setup. The server owns the
// race's rules; the client only needs its identifier and a blurb.
//
// Precondition: ID and Name must be non-empty after loading.
type Race struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// Order sorts the selection menu; ties sort by ID.
	Order int `yaml:"order"`
}

// DefaultRaces is used when no race directory is configured.
func DefaultRaces() []*Race {
	return []*Race{
		{ID: "human", Name: "Human", Description: "Balanced fighters whose resilience lets them recover mid-battle.", Order: 1},
		{ID: "orc", Name: "Orc", Description: "Hardy brutes prone to berserker rage that costs them blood.", Order: 2},
		{ID: "elf", Name: "Elf", Description: "Keen-eyed archers, fragile but deadly with a precision strike.", Order: 3},
	}
}

// LoadRaces reads all .yaml files in dir and parses each as a Race.
// An empty dir returns DefaultRaces.
//
// Postcondition: Returns a non-empty sorted slice or a non-nil error.
func LoadRaces(dir string) ([]*Race, error) {
	if dir == "" {
		return DefaultRaces(), nil
	}
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	races := make([]*Race, 0, len(files))
	seen := make(map[string]string, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var r Race
		if err := yaml.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("parsing race file %s: %w", path, err)
		}
		r.ID = strings.ToLower(strings.TrimSpace(r.ID))
		if r.ID == "" || strings.TrimSpace(r.Name) == "" {
			return nil, fmt.Errorf("race file %s: id and name must be non-empty", path)
		}
		if prev, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("race %q defined in both %s and %s", r.ID, prev, path)
		}
		seen[r.ID] = path
		races = append(races, &r)
	}
	if len(races) == 0 {
		return nil, fmt.Errorf("no race files found in %s", dir)
	}
	sort.SliceStable(races, func(i, j int) bool {
		if races[i].Order != races[j].Order {
			return races[i].Order < races[j].Order
		}
		return races[i].ID < races[j].ID
	})
	return races, nil
}

// Resolve matches a menu choice against races: a 1-based index, an ID or a
// name (case-insensitive). Blank input selects the first race.
//
// Precondition: races must be non-empty.
// Postcondition: Returns the matched race and true, or nil and false.
func Resolve(races []*Race, choice string) (*Race, bool) {
	choice = strings.TrimSpace(choice)
	if choice == "" {
		return races[0], true
	}
	var idx int
	if _, err := fmt.Sscanf(choice, "%d", &idx); err == nil && fmt.Sprint(idx) == choice {
		if idx >= 1 && idx <= len(races) {
			return races[idx-1], true
		}
		return nil, false
	}
	for _, r := range races {
		if strings.EqualFold(r.ID, choice) || strings.EqualFold(r.Name, choice) {
			return r, true
		}
	}
	return nil, false
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths, nil
}
