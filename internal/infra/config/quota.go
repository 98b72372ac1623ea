package config

import (
	"fmt"
	"os"

	"outreach_tracker/internal/domain/subscription"

	"gopkg.in/yaml.v3"
)

// LoadQuotaFile reads a tier -> resource kind -> ceiling table, e.g.
//
//	free:
//	  outreach_records: 25
//	premium:
//	  outreach_records: 1000
//
// Kinds left out of a tier are unlimited for it.
func LoadQuotaFile(path string) (subscription.QuotaTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read quota file: %w", err)
	}
	return ParseQuotaTable(data)
}

func ParseQuotaTable(data []byte) (subscription.QuotaTable, error) {
	var raw map[string]map[string]int
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse quota file: %w", err)
	}

	table := make(subscription.QuotaTable, len(raw))
	for tierName, limits := range raw {
		tier, err := subscription.ParseTier(tierName)
		if err != nil {
			return nil, fmt.Errorf("invalid quota file: %w", err)
		}
		kinds := make(map[subscription.ResourceKind]int, len(limits))
		for kind, ceiling := range limits {
			kinds[subscription.ParseResourceKind(kind)] = ceiling
		}
		table[tier] = kinds
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid quota file: %w", err)
	}
	return table, nil
}
