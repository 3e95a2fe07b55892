package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
)

// Validate checks the structural invariants of a topology. Every violation
// is reported, joined into one error.
func (t *Topology) Validate() error {
	var errs []error
	fail := func(group int, unit, format string, args ...any) {
		errs = append(errs, &TopologyError{Config: t.Name, Group: group, Unit: unit, Msg: fmt.Sprintf(format, args...)})
	}

	if len(t.Groups) == 0 {
		fail(-1, "", "no build groups declared")
		return errors.Join(errs...)
	}

	for gi, g := range t.Groups {
		if len(g.Units) == 0 {
			fail(gi, "", "group has no units")
			continue
		}

		names := make(map[string]bool, len(g.Units))
		for _, u := range g.Units {
			if u.Name == "" {
				fail(gi, "", "unit without a name")
			}
			if names[u.Name] {
				fail(gi, u.Name, "duplicate unit name")
			}
			names[u.Name] = true
			if u.SourcePath == "" {
				fail(gi, u.Name, "path is required")
			}
			if u.ConfigName == "" {
				fail(gi, u.Name, "config name is required")
			}
		}

		masters := g.Masters()
		if len(masters) > 1 {
			fail(gi, masters[1].Name, "%d units claim the master role, at most one is allowed", len(masters))
		}
		for _, m := range masters {
			if !m.Core.Assigned() {
				fail(gi, m.Name, "master unit must be bound to a core")
			}
		}
		if n := len(g.withRole(RoleBootstrap)); n > 1 {
			fail(gi, "", "%d bootstrap units, at most one is allowed", n)
		}

		// Without a master every image runs on its own core, unless the group
		// carries the bootstrap unit.
		if len(masters) == 0 && g.Bootstrap() == nil {
			for _, u := range g.Units {
				if !u.Core.Assigned() {
					fail(gi, u.Name, "core must be assigned in a group without a master")
				}
			}
		}
	}

	errs = append(errs, t.checkDuplicates()...)
	return errors.Join(errs...)
}

// ValidateForBuild adds the requirements of a full build on top of Validate:
// exactly one bootstrap unit, in group 0, bound to a core.
func (t *Topology) ValidateForBuild() error {
	if err := t.Validate(); err != nil {
		return err
	}
	var errs []error
	count := 0
	for gi, g := range t.Groups {
		for _, u := range g.withRole(RoleBootstrap) {
			count++
			if gi != 0 {
				errs = append(errs, &TopologyError{Config: t.Name, Group: gi, Unit: u.Name, Msg: "bootstrap unit must be declared in group 0"})
			}
			if !u.Core.Assigned() {
				errs = append(errs, &TopologyError{Config: t.Name, Group: gi, Unit: u.Name, Msg: "bootstrap unit must be bound to a core"})
			}
		}
	}
	if count == 0 {
		errs = append(errs, &TopologyError{Config: t.Name, Group: 0, Msg: "no bootstrap unit found"})
	}
	return errors.Join(errs...)
}

// checkDuplicates looks across the whole configuration set. An unassigned
// core never counts as a duplicate.
func (t *Topology) checkDuplicates() []error {
	paths := make(map[string][]string)
	cores := make(map[int][]string)
	configs := make(map[string][]string)

	for _, u := range t.Units() {
		if u.SourcePath != "" {
			p := filepath.Clean(u.SourcePath)
			paths[p] = append(paths[p], u.Name)
		}
		if id, ok := u.Core.Get(); ok {
			cores[id] = append(cores[id], u.Name)
		}
		if u.ConfigName != "" {
			configs[u.ConfigName] = append(configs[u.ConfigName], u.Name)
		}
	}

	var errs []error
	for _, p := range sortedKeys(paths) {
		if units := paths[p]; len(units) > 1 {
			errs = append(errs, &TopologyError{Config: t.Name, Group: -1, Msg: fmt.Sprintf("duplicate path %s used by %v", p, units)})
		}
	}
	coreIDs := make([]int, 0, len(cores))
	for id := range cores {
		coreIDs = append(coreIDs, id)
	}
	sort.Ints(coreIDs)
	for _, id := range coreIDs {
		if units := cores[id]; len(units) > 1 {
			errs = append(errs, &TopologyError{Config: t.Name, Group: -1, Msg: fmt.Sprintf("duplicate core %d used by %v", id, units)})
		}
	}
	for _, c := range sortedKeys(configs) {
		if units := configs[c]; len(units) > 1 {
			errs = append(errs, &TopologyError{Config: t.Name, Group: -1, Msg: fmt.Sprintf("duplicate config name %s used by %v", c, units)})
		}
	}
	return errs
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
