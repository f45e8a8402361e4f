package authz

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AccessPolicyConfig is the optional YAML access-policy file. Values here
// replace the corresponding flag/env settings when the file is provided, so
// tenancy policy can be managed alongside other deployment manifests.
type AccessPolicyConfig struct {
	SuperAdminDomains []string `yaml:"superAdminDomains"`
	SuperAdminScopes  []string `yaml:"superAdminScopes"`
	PublicPaths       []string `yaml:"publicPaths"`
}

// LoadAccessPolicy reads and parses the policy file at path.
func LoadAccessPolicy(path string) (*AccessPolicyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read access policy: %w", err)
	}
	var cfg AccessPolicyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse access policy: %w", err)
	}
	return &cfg, nil
}
