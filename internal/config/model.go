package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Document is the unified, format-agnostic representation of a topology
// file: every named AMP configuration it declares.
type Document struct {
	Path    string
	Configs map[string]*Topology
	Order   []string
}

// NewDocument returns an empty document for the given source path.
func NewDocument(path string) *Document {
	return &Document{Path: path, Configs: make(map[string]*Topology)}
}

// Add registers a topology, keeping declaration order.
func (d *Document) Add(t *Topology) error {
	if _, exists := d.Configs[t.Name]; exists {
		return &TopologyError{Config: t.Name, Group: -1, Msg: "configuration declared twice"}
	}
	d.Configs[t.Name] = t
	d.Order = append(d.Order, t.Name)
	return nil
}

// Select returns the named configuration.
func (d *Document) Select(name string) (*Topology, error) {
	if t, ok := d.Configs[name]; ok {
		return t, nil
	}
	names := append([]string(nil), d.Order...)
	sort.Strings(names)
	return nil, fmt.Errorf("configuration %q not found in %s (available: %s)", name, d.Path, strings.Join(names, ", "))
}

// Topology is one AMP configuration: an ordered sequence of build groups.
// Group 0 is the main group that carries the bootstrap unit and is
// processed last.
type Topology struct {
	Name   string
	Groups []*BuildGroup
}

// Units returns every unit of every group in declaration order.
func (t *Topology) Units() []*ImageUnit {
	var units []*ImageUnit
	for _, g := range t.Groups {
		units = append(units, g.Units...)
	}
	return units
}

// Bootstrap returns the bootstrap unit and the index of its group.
func (t *Topology) Bootstrap() (*ImageUnit, int) {
	for i, g := range t.Groups {
		if u := g.Bootstrap(); u != nil {
			return u, i
		}
	}
	return nil, -1
}

// BuildGroup is one packaging unit: every image that ends up concatenated
// into a single blob. Units keep their declaration order.
type BuildGroup struct {
	Index int
	Units []*ImageUnit
}

// Lookup finds a unit by name.
func (g *BuildGroup) Lookup(name string) (*ImageUnit, bool) {
	for _, u := range g.Units {
		if u.Name == name {
			return u, true
		}
	}
	return nil, false
}

// Masters returns every unit claiming the master role.
func (g *BuildGroup) Masters() []*ImageUnit {
	return g.withRole(RoleMaster)
}

// Ordinary returns the units built standalone, in declaration order.
func (g *BuildGroup) Ordinary() []*ImageUnit {
	return g.withRole(RoleOrdinary)
}

// Bootstrap returns the first bootstrap unit, or nil.
func (g *BuildGroup) Bootstrap() *ImageUnit {
	if b := g.withRole(RoleBootstrap); len(b) > 0 {
		return b[0]
	}
	return nil
}

func (g *BuildGroup) withRole(r Role) []*ImageUnit {
	var out []*ImageUnit
	for _, u := range g.Units {
		if u.Role == r {
			out = append(out, u)
		}
	}
	return out
}

// ImageUnit is one per-core build target.
type ImageUnit struct {
	Name       string
	SourcePath string
	Core       CoreID
	Role       Role
	ConfigName string
}

func (u *ImageUnit) String() string {
	return fmt.Sprintf("%s:%s", u.Name, u.SourcePath)
}

// Role is the part a unit plays in packing.
type Role int

const (
	RoleOrdinary Role = iota
	RoleMaster
	RoleBootstrap
)

func (r Role) String() string {
	switch r {
	case RoleMaster:
		return "master"
	case RoleBootstrap:
		return "bootstrap"
	default:
		return "ordinary"
	}
}

// ParseRole accepts "ordinary", "master" or "bootstrap". An empty string is
// ordinary.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ordinary", "slave":
		return RoleOrdinary, nil
	case "master":
		return RoleMaster, nil
	case "bootstrap":
		return RoleBootstrap, nil
	}
	return RoleOrdinary, fmt.Errorf("unknown role %q: must be 'ordinary', 'master' or 'bootstrap'", s)
}

// CoreID is an optional core assignment. The zero value is unassigned.
type CoreID struct {
	id  int
	set bool
}

// Core returns an assigned core id.
func Core(id int) CoreID { return CoreID{id: id, set: true} }

// Unassigned is the explicit "no core" value.
var Unassigned = CoreID{}

// Get returns the core id and whether it is assigned.
func (c CoreID) Get() (int, bool) { return c.id, c.set }

// Assigned reports whether a core is set.
func (c CoreID) Assigned() bool { return c.set }

func (c CoreID) String() string {
	if !c.set {
		return "unassigned"
	}
	return strconv.Itoa(c.id)
}

// ConfigNameFromFile derives the configuration variant name from a legacy
// "<name>.config" file name.
func ConfigNameFromFile(file string) string {
	return strings.TrimSuffix(strings.TrimSpace(file), ".config")
}
