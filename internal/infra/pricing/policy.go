package pricing

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	domainpricing "venuehire/internal/domain/pricing"
)

// PolicyFile is the YAML shape of the fee/tax policy. Rates are decimal strings
// ("0.10") so they never pass through float64.
type PolicyFile struct {
	ServiceFeeRate string `yaml:"service_fee_rate"`
	TaxRate        string `yaml:"tax_rate"`
	TaxBase        string `yaml:"tax_base"`
	Stacking       string `yaml:"stacking"`
}

// ParsePolicy decodes a policy document. Omitted fields keep their defaults.
func ParsePolicy(raw []byte) (domainpricing.Policy, error) {
	policy := domainpricing.DefaultPolicy()
	var file PolicyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return policy, fmt.Errorf("pricing: decode policy: %w", err)
	}
	var err error
	if policy.ServiceFeeRate, err = parseRate(file.ServiceFeeRate, policy.ServiceFeeRate); err != nil {
		return policy, fmt.Errorf("pricing: service_fee_rate: %w", err)
	}
	if policy.TaxRate, err = parseRate(file.TaxRate, policy.TaxRate); err != nil {
		return policy, fmt.Errorf("pricing: tax_rate: %w", err)
	}
	if v := strings.TrimSpace(file.TaxBase); v != "" {
		policy.TaxBase = domainpricing.TaxBase(strings.ToLower(v))
	}
	if v := strings.TrimSpace(file.Stacking); v != "" {
		policy.Stacking = domainpricing.Stacking(strings.ToLower(v))
	}
	if err := policy.Validate(); err != nil {
		return policy, err
	}
	return policy, nil
}

// LoadPolicy reads the policy file at path. An empty path, an unreadable file
// or an invalid document falls back to the default policy with a warning.
func LoadPolicy(path string, logger *slog.Logger) domainpricing.Policy {
	if strings.TrimSpace(path) == "" {
		return domainpricing.DefaultPolicy()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if logger != nil {
			logger.Warn("pricing policy unreadable, using defaults", "path", path, "error", err)
		}
		return domainpricing.DefaultPolicy()
	}
	policy, err := ParsePolicy(raw)
	if err != nil {
		if logger != nil {
			logger.Warn("invalid pricing policy, using defaults", "path", path, "error", err)
		}
		return domainpricing.DefaultPolicy()
	}
	return policy
}

func parseRate(raw string, fallback decimal.Decimal) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	return decimal.NewFromString(raw)
}
