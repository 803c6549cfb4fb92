package particles

// Phase flags packed above the 24-bit group.
const (
	GroupMask   uint32 = 0x00ffffff
	SelfCollide uint32 = 1 << 24
	Fluid       uint32 = 1 << 25
	OneSided    uint32 = 1 << 26
)

// MakePhase packs a group and flags.
func MakePhase(group uint32, flags uint32) uint32 {
	return group&GroupMask | flags&^GroupMask
}

// PhaseGroup returns the group of a phase.
func PhaseGroup(phase uint32) uint32 { return phase & GroupMask }

// IsFluid reports whether the fluid flag is set.
func IsFluid(phase uint32) bool { return phase&Fluid != 0 }

// Filter packing: low 16 bits are the category, high 16 bits are the mask of
// categories this particle collides with.
const (
	CategoryMask  uint32 = 0x0000ffff
	AllCategories uint32 = 0xffff
)

// MakeFilter packs a collide-with mask and category.
func MakeFilter(mask, category uint32) uint32 {
	return mask<<16 | category&CategoryMask
}

// DefaultFilter collides with everything in category 0.
var DefaultFilter = MakeFilter(AllCategories, 1)

// FiltersCollide reports whether each filter's mask accepts the other's category.
func FiltersCollide(a, b uint32) bool {
	return (a>>16)&(b&CategoryMask) != 0 && (b>>16)&(a&CategoryMask) != 0
}

// PhasesCollide decides whether two particles may generate a contact.
// Particles in the same group collide only if the group self-collides.
func PhasesCollide(pa, pb, fa, fb uint32) bool {
	if !FiltersCollide(fa, fb) {
		return false
	}
	if PhaseGroup(pa) == PhaseGroup(pb) {
		return pa&SelfCollide != 0 && pb&SelfCollide != 0
	}
	return true
}
