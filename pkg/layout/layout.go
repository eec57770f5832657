// Package layout assigns positions and sizes to the visible entities of a
// snapshot. Engines are pure functions of the snapshot and the config; the
// coordinator writes the results back into the store.
package layout

import (
	"github.com/vanderheijden86/loomview/pkg/model"
	"github.com/vanderheijden86/loomview/pkg/vizstate"
)

// Config holds the geometry knobs shared by all engines. Coordinates grow
// right and down; positions are top-left corners.
type Config struct {
	NodeWidth   float64 `yaml:"node_width" json:"node_width"`
	NodeHeight  float64 `yaml:"node_height" json:"node_height"`
	HGap        float64 `yaml:"h_gap" json:"h_gap"`
	VGap        float64 `yaml:"v_gap" json:"v_gap"`
	Padding     float64 `yaml:"padding" json:"padding"`
	LabelHeight float64 `yaml:"label_height" json:"label_height"`
}

// DefaultConfig returns the geometry used when no config file overrides it.
func DefaultConfig() Config {
	return Config{
		NodeWidth:   120,
		NodeHeight:  48,
		HGap:        24,
		VGap:        56,
		Padding:     16,
		LabelHeight: 22,
	}
}

// normalized guards against zero/negative geometry from a hand-edited
// config file.
func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.NodeWidth <= 0 {
		c.NodeWidth = d.NodeWidth
	}
	if c.NodeHeight <= 0 {
		c.NodeHeight = d.NodeHeight
	}
	if c.HGap <= 0 {
		c.HGap = d.HGap
	}
	if c.VGap <= 0 {
		c.VGap = d.VGap
	}
	if c.Padding <= 0 {
		c.Padding = d.Padding
	}
	if c.LabelHeight <= 0 {
		c.LabelHeight = d.LabelHeight
	}
	return c
}

// Result is the output of one layout run over a snapshot.
type Result struct {
	Positions map[string]model.Position
	Sizes     map[string]model.Size
	Width     float64
	Height    float64
}

// Engine computes a layout for a visible-entity snapshot.
type Engine interface {
	Name() string
	Layout(snap *vizstate.Snapshot, cfg Config) (*Result, error)
}

// SelectEngine picks the layered engine whenever the snapshot has any
// connections to route, the grid otherwise.
func SelectEngine(snap *vizstate.Snapshot) Engine {
	if snap == nil || len(snap.Edges)+len(snap.HyperEdges) == 0 {
		return Grid{}
	}
	return Layered{}
}
