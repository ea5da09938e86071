package badge

import (
	"fmt"
	"time"

	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Catalog is an immutable lookup table of badge definitions, built once
// at process start and passed into the engine's entry points. Lookup is
// O(1); the catalog is never mutated after construction.
type Catalog struct {
	byName     map[string]*Definition
	byCategory map[Category][]*Definition
}

// NewCatalog builds a catalog from a definition list. Duplicate names,
// unknown categories, and unknown rarity tiers are configuration errors.
func NewCatalog(defs []Definition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, shared.ErrCatalogEmpty
	}

	c := &Catalog{
		byName:     make(map[string]*Definition, len(defs)),
		byCategory: make(map[Category][]*Definition),
	}
	for i := range defs {
		def := defs[i]
		if def.Name == "" {
			return nil, shared.WrapError("catalog", "Load", shared.ErrConfiguration,
				"badge definition without a name", nil)
		}
		if !def.Category.IsValid() {
			return nil, shared.WrapError("catalog", "Load", shared.ErrConfiguration,
				fmt.Sprintf("badge %q has unknown category %q", def.Name, def.Category), nil)
		}
		if !def.Rarity.IsValid() {
			return nil, shared.WrapError("catalog", "Load", shared.ErrConfiguration,
				fmt.Sprintf("badge %q has unknown rarity tier %q", def.Name, def.Rarity), nil)
		}
		if _, exists := c.byName[def.Name]; exists {
			return nil, shared.WrapError("catalog", "Load", shared.ErrConfiguration,
				fmt.Sprintf("duplicate badge definition %q", def.Name), nil)
		}
		c.byName[def.Name] = &def
		c.byCategory[def.Category] = append(c.byCategory[def.Category], &def)
	}
	return c, nil
}

// Lookup returns the definition for a badge name across all catalogs.
func (c *Catalog) Lookup(name string) (*Definition, bool) {
	def, ok := c.byName[name]
	return def, ok
}

// LookupIn returns the definition for a badge name within one category.
func (c *Catalog) LookupIn(category Category, name string) (*Definition, bool) {
	def, ok := c.byName[name]
	if !ok || def.Category != category {
		return nil, false
	}
	return def, true
}

// ByCategory returns all definitions in a category. The returned slice
// is shared and must not be modified.
func (c *Catalog) ByCategory(category Category) []*Definition {
	return c.byCategory[category]
}

// Size returns the number of definitions.
func (c *Catalog) Size() int {
	return len(c.byName)
}

// Names returns every badge name in the catalog (unordered).
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	return names
}

// ══════════════════════════════════════════════════════════════════════════════
// BUILT-IN DEFINITIONS
// ══════════════════════════════════════════════════════════════════════════════

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// DefaultDefinitions returns the built-in badge catalog. Deployments can
// replace or extend it through the YAML catalog loader; the set here
// keeps the engine usable with zero configuration.
func DefaultDefinitions() []Definition {
	return []Definition{
		// Skill badges
		{
			Name:        "Python Pioneer",
			Category:    CategorySkill,
			Subcategory: "language",
			Description: "Demonstrated solid Python fundamentals",
			Rarity:      RarityCommon,
			Criteria: Criteria{
				MinSkillLevel:  intPtr(2),
				RequiredSkills: []shared.SkillID{"python"},
			},
		},
		{
			Name:        "Algorithm Ace",
			Category:    CategorySkill,
			Subcategory: "algorithms",
			Description: "Mastered core algorithmic techniques",
			Rarity:      RarityRare,
			Criteria: Criteria{
				MinSkillLevel:               intPtr(5),
				MinCodeQuality:              floatPtr(80),
				RequiredSkills:              []shared.SkillID{"algorithms", "data-structures"},
				RequiresChallengeCompletion: true,
			},
		},
		{
			Name:        "Code Artisan",
			Category:    CategorySkill,
			Subcategory: "craftsmanship",
			Description: "Consistently writes clean, idiomatic code",
			Rarity:      RarityEpic,
			Criteria: Criteria{
				MinSkillLevel:  intPtr(6),
				MinCodeQuality: floatPtr(90),
				MinTotalPoints: intPtr(5_000),
			},
		},
		{
			Name:        "Systems Sage",
			Category:    CategorySkill,
			Subcategory: "systems",
			Description: "Deep command of systems programming",
			Rarity:      RarityLegendary,
			Criteria: Criteria{
				MinSkillLevel:               intPtr(8),
				MinCodeQuality:              floatPtr(92),
				RequiredSkills:              []shared.SkillID{"concurrency", "memory-management", "networking"},
				RequiresChallengeCompletion: true,
			},
		},

		// Achievement badges
		{
			Name:        "First Steps",
			Category:    CategoryAchievement,
			Subcategory: "milestone",
			Description: "Completed a first challenge",
			Rarity:      RarityCommon,
			Criteria: Criteria{
				RequiresChallengeCompletion: true,
			},
		},
		{
			Name:        "Century Club",
			Category:    CategoryAchievement,
			Subcategory: "milestone",
			Description: "Accumulated 100 experience points",
			Rarity:      RarityCommon,
			Criteria: Criteria{
				MinTotalPoints: intPtr(100),
			},
		},
		{
			Name:        "Ten Thousand Hours",
			Category:    CategoryAchievement,
			Subcategory: "milestone",
			Description: "Accumulated 10,000 experience points",
			Rarity:      RarityEpic,
			Criteria: Criteria{
				MinTotalPoints: intPtr(10_000),
			},
		},
		{
			Name:        "Trusted Reviewer",
			Category:    CategoryAchievement,
			Subcategory: "peer-review",
			Description: "Earned outstanding peer-review ratings",
			Rarity:      RarityRare,
			Criteria: Criteria{
				MinPeerReviewScore: floatPtr(4.5),
			},
		},

		// Special badges
		{
			Name:         "Founding Cohort",
			Category:     CategorySpecial,
			Subcategory:  "limited",
			Description:  "Member of the platform's founding cohort",
			Rarity:       RarityLegendary,
			EditionTotal: 100,
			Criteria: Criteria{
				MinTotalPoints: intPtr(1),
			},
		},
		{
			Name:        "Night Owl",
			Category:    CategorySpecial,
			Subcategory: "event",
			Description: "Completed a challenge during a late-night sprint",
			Rarity:      RarityUncommon,
			ValidFor:    365 * 24 * time.Hour,
			Criteria: Criteria{
				RequiresChallengeCompletion: true,
			},
		},

		// Community badges
		{
			Name:             "Community Mentor",
			Category:         CategoryCommunity,
			Subcategory:      "mentorship",
			Description:      "Recognized for sustained mentorship",
			Rarity:           RarityRare,
			ContributionType: "mentorship",
			Criteria: Criteria{
				MinPeerReviewScore: floatPtr(4.0),
			},
		},
		{
			Name:             "Bug Hunter",
			Category:         CategoryCommunity,
			Subcategory:      "quality",
			Description:      "Reported impactful platform bugs",
			Rarity:           RarityUncommon,
			ContributionType: "bug_report",
			Criteria: Criteria{
				MinTotalPoints: intPtr(50),
			},
		},
	}
}

// DefaultCatalog builds the built-in catalog. It panics on error because
// the built-in definitions are compile-time constants; a failure here is
// a programming bug, not a runtime condition.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultDefinitions())
	if err != nil {
		panic(fmt.Sprintf("badge: built-in catalog invalid: %v", err))
	}
	return c
}
