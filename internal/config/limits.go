package config

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"rulebase/internal/domain/models"
)

// Validation bounds shared across services.
const (
	MaxFolderNameLength = 120
	MaxRuleNameLength   = 120
	MaxRuleContentBytes = 256 << 10 // 256 KiB of plain text
)

//go:embed plan_limits.yaml
var planLimitsYAML []byte

// PlanLimits are the per-plan maxima enforced at creation time.
type PlanLimits struct {
	MaxProjectsPerAccount int `yaml:"max_projects_per_account"`
	MaxFoldersPerScope    int `yaml:"max_folders_per_scope"`
	MaxRulesPerFolder     int `yaml:"max_rules_per_folder"`
	MaxGroupsPerAccount   int `yaml:"max_groups_per_account"`
}

// Limits maps plans to their limits, loaded from the embedded YAML.
type Limits struct {
	Plans map[string]PlanLimits `yaml:"plans"`
}

// LoadLimits parses the embedded plan limit table.
func LoadLimits() (*Limits, error) {
	var l Limits
	if err := yaml.Unmarshal(planLimitsYAML, &l); err != nil {
		return nil, fmt.Errorf("parse plan limits: %w", err)
	}
	for _, plan := range []string{"free", "team", "enterprise"} {
		if _, ok := l.Plans[plan]; !ok {
			return nil, fmt.Errorf("plan limits missing entry for %q", plan)
		}
	}
	return &l, nil
}

// For returns the limits of a plan, falling back to free for unknown plans.
func (l *Limits) For(plan models.Plan) PlanLimits {
	if p, ok := l.Plans[string(plan)]; ok {
		return p
	}
	return l.Plans["free"]
}
