package content

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func writeRace(t *testing.T, dir, file, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(body), 0644))
}

func TestLoadRaces_EmptyDirUsesDefaults(t *testing.T) {
	races, err := LoadRaces("")
	require.NoError(t, err)
	require.Len(t, races, 3)
	assert.Equal(t, "human", races[0].ID)
}

func TestLoadRaces_FromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeRace(t, dir, "b.yaml", "id: Elf\nname: Elf\norder: 2\ndescription: Swift.\n")
	writeRace(t, dir, "a.yml", "id: orc\nname: Orc\norder: 1\n")
	writeRace(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	races, err := LoadRaces(dir)
	require.NoError(t, err)
	require.Len(t, races, 2)
	assert.Equal(t, "orc", races[0].ID)
	assert.Equal(t, "elf", races[1].ID, "ids are normalized to lowercase")
	assert.Equal(t, "Swift.", races[1].Description)
}

func TestLoadRaces_ShippedContent(t *testing.T) {
	races, err := LoadRaces(filepath.Join("..", "..", "content", "races"))
	require.NoError(t, err)
	ids := make([]string, 0, len(races))
	for _, r := range races {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"human", "orc", "elf"}, ids)
}

func TestLoadRaces_Errors(t *testing.T) {
	_, err := LoadRaces("/nonexistent/races")
	assert.Error(t, err)

	empty := t.TempDir()
	_, err = LoadRaces(empty)
	assert.Error(t, err)

	bad := t.TempDir()
	writeRace(t, bad, "x.yaml", "id: [unterminated")
	_, err = LoadRaces(bad)
	assert.Error(t, err)

	noName := t.TempDir()
	writeRace(t, noName, "x.yaml", "id: orc\n")
	_, err = LoadRaces(noName)
	assert.Error(t, err)

	dup := t.TempDir()
	writeRace(t, dup, "a.yaml", "id: orc\nname: Orc\n")
	writeRace(t, dup, "b.yaml", "id: ORC\nname: Orc Again\n")
	_, err = LoadRaces(dup)
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	races := DefaultRaces()

	r, ok := Resolve(races, "")
	require.True(t, ok)
	assert.Equal(t, "human", r.ID)

	r, ok = Resolve(races, "2")
	require.True(t, ok)
	assert.Equal(t, "orc", r.ID)

	r, ok = Resolve(races, " ELF ")
	require.True(t, ok)
	assert.Equal(t, "elf", r.ID)

	r, ok = Resolve(races, "Orc")
	require.True(t, ok)
	assert.Equal(t, "orc", r.ID)

	for _, bad := range []string{"0", "4", "-1", "dwarf", "2x"} {
		_, ok = Resolve(races, bad)
		assert.False(t, ok, "choice %q", bad)
	}
}

// Property: every in-range index selects the race at that position.
func TestPropertyResolveIndex(t *testing.T) {
	races := DefaultRaces()
	rapid.Check(t, func(t *rapid.T) {
		i := rapid.IntRange(1, len(races)).Draw(t, "index")
		r, ok := Resolve(races, strconv.Itoa(i))
		if !ok || r != races[i-1] {
			t.Fatalf("Resolve(%d) = %v, %v", i, r, ok)
		}
	})
}
