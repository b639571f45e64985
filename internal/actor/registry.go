package actor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Registry holds the immutable advisor roster for the life of a
// process.
type Registry struct {
	specs  []*Spec
	byName map[string]*Spec
}

// NewRegistry builds a registry from already-decoded specs, preserving
// their order.
func NewRegistry(specs []*Spec) *Registry {
	reg := &Registry{byName: map[string]*Spec{}}
	for _, s := range specs {
		reg.specs = append(reg.specs, s)
		reg.byName[strings.ToLower(s.FirstName)] = s
	}
	return reg
}

// Load reads every advisor directory under rosterDir. Directories with
// a leading underscore are templates and skipped. A directory missing
// its spec.toml is logged and skipped; the rest of the roster still
// loads. Returned order is lexicographic by directory name, which keeps
// ambiguity messages deterministic.
func Load(rosterDir string, logger *zap.Logger) (*Registry, error) {
	entries, err := os.ReadDir(rosterDir)
	if err != nil {
		return nil, fmt.Errorf("read roster dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), "_") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	reg := &Registry{byName: map[string]*Spec{}}
	for _, name := range names {
		dir := filepath.Join(rosterDir, name)
		specPath := filepath.Join(dir, "spec.toml")
		if _, err := os.Stat(specPath); err != nil {
			logger.Warn("advisor missing spec.toml, skipping",
				zap.String("advisor", name))
			continue
		}

		spec, err := decodeSpec(specPath, dir, name)
		if err != nil {
			logger.Warn("advisor spec failed to decode, skipping",
				zap.String("advisor", name), zap.Error(err))
			continue
		}

		personaPath := filepath.Join(dir, "persona.md")
		if _, err := os.Stat(personaPath); err == nil {
			frags, err := loadFragmentDoc(personaPath)
			if err != nil {
				logger.Warn("persona document unreadable",
					zap.String("advisor", name), zap.Error(err))
			} else {
				spec.Fragments = frags
			}
		}

		reg.specs = append(reg.specs, spec)
		reg.byName[strings.ToLower(spec.FirstName)] = spec
	}

	logger.Info("roster loaded",
		zap.String("dir", rosterDir), zap.Int("advisors", len(reg.specs)))
	return reg, nil
}

// All returns the roster in load order. Callers must not mutate it.
func (r *Registry) All() []*Spec {
	return r.specs
}

// ByFirstName looks an advisor up by first name, case-insensitive.
func (r *Registry) ByFirstName(name string) (*Spec, bool) {
	s, ok := r.byName[strings.ToLower(name)]
	return s, ok
}

// Len returns the roster size.
func (r *Registry) Len() int { return len(r.specs) }
