package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// OverlayID uniquely identifies an overlay.
type OverlayID string

// Standard overlay IDs.
const (
	OverlayColliders  OverlayID = "colliders"
	OverlayWireframe  OverlayID = "wireframe"
	OverlayContacts   OverlayID = "contacts"
	OverlayVelocities OverlayID = "velocities"
	OverlayNormals    OverlayID = "normals"
	OverlayAnisotropy OverlayID = "anisotropy"
	OverlayGrid       OverlayID = "grid"
)

// OverlayDescriptor defines an overlay that can be toggled.
type OverlayDescriptor struct {
	ID          OverlayID
	Name        string
	Description string
	Key         int32  // keyboard key to toggle (0 = no key)
	KeyLabel    string // key label for display (e.g., "C")
	Category    string
	Exclusive   []OverlayID // overlays to disable when this is enabled
}

// OverlayRegistry manages overlay state and metadata.
type OverlayRegistry struct {
	descriptors []OverlayDescriptor
	byID        map[OverlayID]OverlayDescriptor
	enabled     map[OverlayID]bool
}

// NewOverlayRegistry creates a registry with default overlays. Colliders
// and the ground grid start enabled.
func NewOverlayRegistry() *OverlayRegistry {
	reg := &OverlayRegistry{
		byID:    make(map[OverlayID]OverlayDescriptor),
		enabled: make(map[OverlayID]bool),
	}
	reg.registerDefaults()
	reg.SetEnabled(OverlayColliders, true)
	reg.SetEnabled(OverlayGrid, true)
	return reg
}

func (r *OverlayRegistry) registerDefaults() {
	r.Register(OverlayDescriptor{
		ID: OverlayColliders, Name: "Colliders", Description: "Draw collider shapes",
		Key: rl.KeyC, KeyLabel: "C", Category: "scene",
	})
	r.Register(OverlayDescriptor{
		ID: OverlayGrid, Name: "Ground Grid", Description: "Draw the reference grid",
		Key: rl.KeyG, KeyLabel: "G", Category: "scene",
	})
	r.Register(OverlayDescriptor{
		ID: OverlayWireframe, Name: "Wireframe", Description: "Draw cloth and softbody surfaces as lines",
		Key: rl.KeyW, KeyLabel: "W", Category: "particles",
	})
	r.Register(OverlayDescriptor{
		ID: OverlayAnisotropy, Name: "Anisotropy", Description: "Draw fluid particles as ellipsoid axes",
		Key: rl.KeyA, KeyLabel: "A", Category: "particles",
	})
	r.Register(OverlayDescriptor{
		ID: OverlayContacts, Name: "Contacts", Description: "Draw collider contact normals",
		Key: rl.KeyN, KeyLabel: "N", Category: "debug",
		Exclusive: []OverlayID{OverlayNormals},
	})
	r.Register(OverlayDescriptor{
		ID: OverlayNormals, Name: "Fluid Normals", Description: "Draw fluid surface normals",
		Key: rl.KeyM, KeyLabel: "M", Category: "debug",
		Exclusive: []OverlayID{OverlayContacts},
	})
	r.Register(OverlayDescriptor{
		ID: OverlayVelocities, Name: "Velocities", Description: "Draw particle velocity vectors",
		Key: rl.KeyV, KeyLabel: "V", Category: "debug",
	})
}

// Register adds an overlay to the registry.
func (r *OverlayRegistry) Register(desc OverlayDescriptor) {
	r.descriptors = append(r.descriptors, desc)
	r.byID[desc.ID] = desc
	r.enabled[desc.ID] = false
}

// Toggle switches an overlay on/off and handles exclusivity.
func (r *OverlayRegistry) Toggle(id OverlayID) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	state := !r.enabled[id]
	r.SetEnabled(id, state)
	return state
}

// SetEnabled explicitly sets an overlay's state.
func (r *OverlayRegistry) SetEnabled(id OverlayID, enabled bool) {
	desc, ok := r.byID[id]
	if !ok {
		return
	}
	r.enabled[id] = enabled
	if enabled {
		for _, excl := range desc.Exclusive {
			r.enabled[excl] = false
		}
	}
}

// IsEnabled returns whether an overlay is active.
func (r *OverlayRegistry) IsEnabled(id OverlayID) bool {
	return r.enabled[id]
}

// ByCategory returns overlays filtered by category.
func (r *OverlayRegistry) ByCategory(category string) []OverlayDescriptor {
	var result []OverlayDescriptor
	for _, desc := range r.descriptors {
		if desc.Category == category {
			result = append(result, desc)
		}
	}
	return result
}

// Categories returns all unique categories in order.
func (r *OverlayRegistry) Categories() []string {
	seen := make(map[string]bool)
	var cats []string
	for _, desc := range r.descriptors {
		if !seen[desc.Category] {
			seen[desc.Category] = true
			cats = append(cats, desc.Category)
		}
	}
	return cats
}

// HandleKeys toggles every overlay whose key was pressed this frame.
func (r *OverlayRegistry) HandleKeys() {
	for _, desc := range r.descriptors {
		if desc.Key != 0 && rl.IsKeyPressed(desc.Key) {
			r.Toggle(desc.ID)
		}
	}
}
