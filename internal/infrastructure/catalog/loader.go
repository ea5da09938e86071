// Package catalog loads badge catalogs from YAML files. Operators drop
// catalog files into a directory; the loader parses and validates them
// and hands the merged definition set to badge.NewCatalog.
package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/codequest-hub/gamification-engine/internal/domain/badge"
	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
)

var validate = validator.New()

// ══════════════════════════════════════════════════════════════════════════════
// FILE FORMAT
// ══════════════════════════════════════════════════════════════════════════════

// catalogFile is the YAML shape of one catalog file.
type catalogFile struct {
	Badges []badgeEntry `yaml:"badges" validate:"required,min=1,dive"`
}

// badgeEntry is one badge definition as written in YAML.
type badgeEntry struct {
	Name        string `yaml:"name" validate:"required"`
	Category    string `yaml:"category" validate:"required,oneof=skill achievement special community"`
	Subcategory string `yaml:"subcategory"`
	Description string `yaml:"description"`
	Rarity      string `yaml:"rarity" validate:"required,oneof=common uncommon rare epic legendary"`

	Criteria criteriaEntry `yaml:"criteria"`

	// Special-badge fields
	EditionTotal int    `yaml:"edition_total" validate:"gte=0"`
	ValidFor     string `yaml:"valid_for"`

	// Community-badge fields
	ContributionType string `yaml:"contribution_type"`
}

type criteriaEntry struct {
	MinSkillLevel               *int      `yaml:"min_skill_level" validate:"omitempty,gte=1,lte=10"`
	MinTotalPoints              *int      `yaml:"min_total_points" validate:"omitempty,gte=0"`
	MinCodeQuality              *float64  `yaml:"min_code_quality" validate:"omitempty,gte=0,lte=100"`
	RequiredSkills              []string  `yaml:"required_skills"`
	RequiresChallengeCompletion bool      `yaml:"requires_challenge_completion"`
	MinPeerReviewScore          *float64  `yaml:"min_peer_review_score" validate:"omitempty,gte=0,lte=5"`
	WindowStart                 time.Time `yaml:"window_start"`
	WindowEnd                   time.Time `yaml:"window_end"`
}

// ══════════════════════════════════════════════════════════════════════════════
// LOADER
// ══════════════════════════════════════════════════════════════════════════════

// Loader reads catalog files from disk.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a catalog loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// LoadDir loads every *.yaml / *.yml file in dir into one catalog.
// When dir holds no files the built-in default catalog is returned, so
// a fresh deployment works without any operator-provided files.
func (l *Loader) LoadDir(dir string) (*badge.Catalog, error) {
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}

	if len(files) == 0 {
		l.logger.Info("no catalog files found, using built-in catalog", "dir", dir)
		return badge.DefaultCatalog(), nil
	}

	var defs []badge.Definition
	for _, file := range files {
		fileDefs, err := l.LoadFile(file)
		if err != nil {
			return nil, err
		}
		defs = append(defs, fileDefs...)
	}

	catalog, err := badge.NewCatalog(defs)
	if err != nil {
		return nil, err
	}

	l.logger.Info("badge catalog loaded", "files", len(files), "badges", catalog.Size())
	return catalog, nil
}

// LoadFile parses and validates a single catalog file.
func (l *Loader) LoadFile(path string) ([]badge.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, shared.WrapError("catalog", "LoadFile", shared.ErrConfiguration,
			"failed to read catalog file "+path, err)
	}
	return Parse(data, path)
}

// Parse parses catalog YAML. The source name is used in error messages
// only.
func Parse(data []byte, source string) ([]badge.Definition, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, shared.WrapError("catalog", "Parse", shared.ErrConfiguration,
			"failed to parse catalog YAML in "+source, err)
	}

	if err := validate.Struct(&file); err != nil {
		return nil, shared.WrapError("catalog", "Parse", shared.ErrConfiguration,
			"catalog validation failed in "+source, err)
	}

	defs := make([]badge.Definition, 0, len(file.Badges))
	for _, entry := range file.Badges {
		def, err := entry.toDefinition(source)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (e badgeEntry) toDefinition(source string) (badge.Definition, error) {
	def := badge.Definition{
		Name:             e.Name,
		Category:         badge.Category(e.Category),
		Subcategory:      e.Subcategory,
		Description:      e.Description,
		Rarity:           badge.RarityTier(e.Rarity),
		EditionTotal:     e.EditionTotal,
		ContributionType: e.ContributionType,
		Criteria: badge.Criteria{
			MinSkillLevel:               e.Criteria.MinSkillLevel,
			MinTotalPoints:              e.Criteria.MinTotalPoints,
			MinCodeQuality:              e.Criteria.MinCodeQuality,
			RequiresChallengeCompletion: e.Criteria.RequiresChallengeCompletion,
			MinPeerReviewScore:          e.Criteria.MinPeerReviewScore,
		},
	}

	for _, s := range e.Criteria.RequiredSkills {
		skill := shared.SkillID(s)
		if !skill.IsValid() {
			return badge.Definition{}, shared.WrapError("catalog", "Parse", shared.ErrConfiguration,
				fmt.Sprintf("badge %q in %s has invalid skill ID %q", e.Name, source, s), nil)
		}
		def.Criteria.RequiredSkills = append(def.Criteria.RequiredSkills, skill)
	}

	if !e.Criteria.WindowStart.IsZero() || !e.Criteria.WindowEnd.IsZero() {
		if !e.Criteria.WindowEnd.After(e.Criteria.WindowStart) {
			return badge.Definition{}, shared.WrapError("catalog", "Parse", shared.ErrConfiguration,
				fmt.Sprintf("badge %q in %s has an empty time window", e.Name, source), nil)
		}
		def.Criteria.TimeWindow = &badge.TimeWindow{
			Start: e.Criteria.WindowStart,
			End:   e.Criteria.WindowEnd,
		}
	}

	if e.ValidFor != "" {
		d, err := time.ParseDuration(e.ValidFor)
		if err != nil || d <= 0 {
			return badge.Definition{}, shared.WrapError("catalog", "Parse", shared.ErrConfiguration,
				fmt.Sprintf("badge %q in %s has invalid valid_for %q", e.Name, source, e.ValidFor), err)
		}
		def.ValidFor = d
	}

	return def, nil
}
