package cmd

import (
	"github.com/shadowdev/shadowctl/internal/app"
	"github.com/shadowdev/shadowctl/internal/environment"
	"github.com/shadowdev/shadowctl/internal/errors"
	"github.com/shadowdev/shadowctl/internal/manager"
)

// getManager returns the process-wide environment manager.
func getManager() (*manager.Manager, error) {
	return app.Get().Manager()
}

// parseRepoSpecs parses and validates local source mappings, rejecting
// duplicate identities before any work starts.
func parseRepoSpecs(mappings []string) ([]environment.RepoSpec, error) {
	var specs []environment.RepoSpec
	seen := make(map[string]bool)
	for _, mapping := range mappings {
		spec, err := environment.ParseLocal(mapping)
		if err != nil {
			return nil, err
		}
		if seen[spec.FullName()] {
			return nil, errors.ConfigurationError("duplicate repository " + spec.FullName())
		}
		seen[spec.FullName()] = true
		specs = append(specs, spec)
	}
	return specs, nil
}
