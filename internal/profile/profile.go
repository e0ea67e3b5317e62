// Package profile loads the static guild profile: the managed guild, its
// declared categories, archive containers, and role identifiers. The
// profile is read once at startup and immutable afterwards.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aurelwyn/conclave/internal/discord"
)

// Category is one declared channel container members can pick.
type Category struct {
	ID   discord.Snowflake `json:"id"`
	Name string            `json:"name"`
}

// Roles holds the role identifiers the bot manages overwrites for.
type Roles struct {
	Everyone  discord.Snowflake `json:"everyone"`
	Member    discord.Snowflake `json:"member"`
	Conlanger discord.Snowflake `json:"conlanger"`
}

// Profile is the static guild configuration.
type Profile struct {
	Name            string              `json:"name"`
	Guild           discord.Snowflake   `json:"guild"`
	Archives        []discord.Snowflake `json:"archives"`
	PrivateArchives []discord.Snowflake `json:"private-archives"`
	PerRow          int                 `json:"per-row"`
	Roles           Roles               `json:"roles"`
	Categories      []Category          `json:"categories"`
}

// Load reads and validates a profile document from path.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the structural invariants of the profile.
func (p *Profile) Validate() error {
	if p.Guild == 0 {
		return fmt.Errorf("profile guild id is required")
	}
	if p.Roles.Everyone == 0 {
		return fmt.Errorf("profile everyone role is required")
	}
	if p.Roles.Member == 0 {
		return fmt.Errorf("profile member role is required")
	}
	if p.PerRow <= 0 {
		p.PerRow = 4
	}
	seen := make(map[string]struct{}, len(p.Categories))
	for _, cat := range p.Categories {
		if cat.ID == 0 || strings.TrimSpace(cat.Name) == "" {
			return fmt.Errorf("profile category needs id and name")
		}
		key := strings.ToLower(cat.Name)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("duplicate profile category %q", cat.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// IsArchive reports whether id is one of the configured archive containers,
// public or private.
func (p *Profile) IsArchive(id discord.Snowflake) bool {
	for _, archive := range p.Archives {
		if archive == id {
			return true
		}
	}
	for _, archive := range p.PrivateArchives {
		if archive == id {
			return true
		}
	}
	return false
}

// CategoryByName resolves a declared category by case-insensitive name.
func (p *Profile) CategoryByName(name string) (Category, bool) {
	for _, cat := range p.Categories {
		if strings.EqualFold(cat.Name, name) {
			return cat, true
		}
	}
	return Category{}, false
}

// CategoryByID resolves a declared category by container id.
func (p *Profile) CategoryByID(id discord.Snowflake) (Category, bool) {
	for _, cat := range p.Categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return Category{}, false
}
