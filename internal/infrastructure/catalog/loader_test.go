package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codequest-hub/gamification-engine/internal/domain/badge"
	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
)

const validCatalogYAML = `
badges:
  - name: Go Gopher
    category: skill
    subcategory: language
    description: Solid Go fundamentals
    rarity: uncommon
    criteria:
      min_skill_level: 3
      required_skills: [go, testing]
  - name: Launch Week
    category: special
    rarity: legendary
    edition_total: 50
    valid_for: 8760h
    criteria:
      requires_challenge_completion: true
      window_start: 2026-01-01T00:00:00Z
      window_end: 2026-01-08T00:00:00Z
`

func TestParse_ValidCatalog(t *testing.T) {
	defs, err := Parse([]byte(validCatalogYAML), "test.yaml")
	assert.NoError(t, err)
	assert.Len(t, defs, 2)

	gopher := defs[0]
	assert.Equal(t, "Go Gopher", gopher.Name)
	assert.Equal(t, badge.CategorySkill, gopher.Category)
	assert.Equal(t, badge.RarityUncommon, gopher.Rarity)
	assert.Equal(t, 3, *gopher.Criteria.MinSkillLevel)
	assert.Equal(t, []shared.SkillID{"go", "testing"}, gopher.Criteria.RequiredSkills)

	launch := defs[1]
	assert.Equal(t, 50, launch.EditionTotal)
	assert.Equal(t, 8760.0, launch.ValidFor.Hours())
	assert.NotNil(t, launch.Criteria.TimeWindow)
	assert.True(t, launch.Criteria.TimeWindow.End.After(launch.Criteria.TimeWindow.Start))
}

func TestParse_UnknownRarityRejected(t *testing.T) {
	_, err := Parse([]byte(`
badges:
  - name: Broken
    category: skill
    rarity: mythic
`), "bad.yaml")

	assert.Error(t, err)
	assert.True(t, shared.IsConfiguration(err))
}

func TestParse_UnknownCategoryRejected(t *testing.T) {
	_, err := Parse([]byte(`
badges:
  - name: Broken
    category: cosmetics
    rarity: common
`), "bad.yaml")

	assert.Error(t, err)
	assert.True(t, shared.IsConfiguration(err))
}

func TestParse_InvalidSkillIDRejected(t *testing.T) {
	_, err := Parse([]byte(`
badges:
  - name: Broken
    category: skill
    rarity: common
    criteria:
      required_skills: ["Not A Skill"]
`), "bad.yaml")

	assert.Error(t, err)
	assert.True(t, shared.IsConfiguration(err))
}

func TestParse_EmptyTimeWindowRejected(t *testing.T) {
	_, err := Parse([]byte(`
badges:
  - name: Broken
    category: special
    rarity: rare
    criteria:
      window_start: 2026-02-01T00:00:00Z
      window_end: 2026-01-01T00:00:00Z
`), "bad.yaml")

	assert.Error(t, err)
}

func TestParse_MalformedYAML(t *testing.T) {
	_, err := Parse([]byte("badges: [}"), "bad.yaml")
	assert.Error(t, err)
	assert.True(t, shared.IsConfiguration(err))
}

func TestLoadDir_EmptyDirFallsBackToBuiltIn(t *testing.T) {
	loader := NewLoader(nil)

	catalog, err := loader.LoadDir(t.TempDir())
	assert.NoError(t, err)
	assert.Equal(t, badge.DefaultCatalog().Size(), catalog.Size())
}

func TestLoadDir_ReadsYAMLFiles(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "badges.yaml"), []byte(validCatalogYAML), 0o644)
	assert.NoError(t, err)

	catalog, err := NewLoader(nil).LoadDir(dir)
	assert.NoError(t, err)
	assert.Equal(t, 2, catalog.Size())

	def, ok := catalog.Lookup("Go Gopher")
	assert.True(t, ok)
	assert.Equal(t, badge.CategorySkill, def.Category)
}

func TestLoadDir_DuplicateAcrossFilesRejected(t *testing.T) {
	dir := t.TempDir()
	single := `
badges:
  - name: Twice
    category: skill
    rarity: common
`
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(single), 0o644))
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(single), 0o644))

	_, err := NewLoader(nil).LoadDir(dir)
	assert.Error(t, err)
	assert.True(t, shared.IsConfiguration(err))
}
