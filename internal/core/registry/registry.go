package registry

import (
	"sort"
	"sync"

	"github.com/penwyp/go-cfs-perfmon/internal/core/constants"
	"github.com/penwyp/go-cfs-perfmon/internal/core/model"
)

// DefaultPalette is cycled in discovery order for IDs without a color.
var DefaultPalette = []model.RGB{
	{R: 0, G: 255, B: 0},     // green
	{R: 255, G: 255, B: 0},   // yellow
	{R: 0, G: 0, B: 255},     // blue
	{R: 255, G: 200, B: 0},   // orange
	{R: 255, G: 0, B: 255},   // magenta
	{R: 0, G: 255, B: 255},   // cyan
	{R: 192, G: 192, B: 192}, // light gray
	{R: 255, G: 175, B: 175}, // pink
}

// Definition describes an ID as supplied by an ID list or the config file.
// Nil fields leave the current value untouched.
type Definition struct {
	ID       uint32
	Name     string
	Color    *model.RGB
	MinValue *float64
	MaxValue *float64
	Plot     *bool
	Notes    string
}

// Registry maps performance IDs to their display attributes. It is safe for
// concurrent use.
type Registry struct {
	mu         sync.RWMutex
	ids        map[uint32]*model.PerformanceID
	palette    []model.RGB
	colorIndex int
}

// New creates an empty registry using DefaultPalette.
func New() *Registry {
	return &Registry{
		ids:     make(map[uint32]*model.PerformanceID),
		palette: DefaultPalette,
	}
}

func (r *Registry) nextColor() model.RGB {
	color := r.palette[r.colorIndex%len(r.palette)]
	r.colorIndex++
	return color
}

// lookup returns the entry for id, creating it when unknown. Caller holds
// the write lock.
func (r *Registry) lookup(id uint32) *model.PerformanceID {
	if pid, ok := r.ids[id]; ok {
		return pid
	}
	pid := &model.PerformanceID{
		ID:          id,
		Name:        constants.UndefinedName,
		Color:       r.nextColor(),
		PlotEnabled: true,
	}
	r.ids[id] = pid
	return pid
}

// Resolve splits a raw ID word and returns the matching entry, creating an
// unnamed one on first sight.
func (r *Registry) Resolve(raw uint32) (model.PerformanceID, bool) {
	id, isEntry := model.SplitIDWord(raw)

	r.mu.RLock()
	pid, ok := r.ids[id]
	if ok {
		out := *pid
		r.mu.RUnlock()
		return out, isEntry
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.lookup(id), isEntry
}

// Register sets the name and color of id. The plot flag is preserved.
func (r *Registry) Register(id uint32, name string, color model.RGB) model.PerformanceID {
	r.mu.Lock()
	defer r.mu.Unlock()

	pid, ok := r.ids[id&constants.IDMask]
	if !ok {
		pid = &model.PerformanceID{ID: id & constants.IDMask, PlotEnabled: true}
		r.ids[pid.ID] = pid
	}
	if name == "" {
		name = constants.UndefinedName
	}
	pid.Name = name
	pid.Color = color
	return *pid
}

// Define applies a definition, taking a palette color when none is given
// for a new ID.
func (r *Registry) Define(def Definition) model.PerformanceID {
	r.mu.Lock()
	defer r.mu.Unlock()

	pid := r.lookup(def.ID & constants.IDMask)
	if def.Name != "" {
		pid.Name = def.Name
	}
	if def.Color != nil {
		pid.Color = *def.Color
	}
	if def.MinValue != nil {
		v := *def.MinValue
		pid.MinValue = &v
	}
	if def.MaxValue != nil {
		v := *def.MaxValue
		pid.MaxValue = &v
	}
	if def.Plot != nil {
		pid.PlotEnabled = *def.Plot
	}
	if def.Notes != "" {
		pid.Notes = def.Notes
	}
	return *pid
}

// DefineAll applies every definition in order.
func (r *Registry) DefineAll(defs []Definition) {
	for _, def := range defs {
		r.Define(def)
	}
}

// SetPlotEnabled toggles inclusion of id in statistics. Unknown IDs are
// created so the choice survives a later load.
func (r *Registry) SetPlotEnabled(id uint32, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookup(id & constants.IDMask).PlotEnabled = enabled
}

// Get returns the entry for id without creating it.
func (r *Registry) Get(id uint32) (model.PerformanceID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pid, ok := r.ids[id&constants.IDMask]
	if !ok {
		return model.PerformanceID{}, false
	}
	return *pid, true
}

// Len returns the number of known IDs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ids)
}

// Snapshot returns a copy of every entry ordered by ID.
func (r *Registry) Snapshot() []model.PerformanceID {
	r.mu.RLock()
	out := make([]model.PerformanceID, 0, len(r.ids))
	for _, pid := range r.ids {
		out = append(out, *pid)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
