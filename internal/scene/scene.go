// Package scene defines the narrow render-substrate capability the hunt engine drives,
// plus a headless implementation used by the CLI and tests.
package scene

import (
	"github.com/GhostbusterQuest/huntcore/internal/assets"
	"github.com/GhostbusterQuest/huntcore/pkg/core"
)

// Handle is an opaque reference to a scene node. The zero Handle is the scene root.
type Handle uint64

// Root is the implicit parent of top-level nodes. Its pose is the identity.
const Root Handle = 0

// Kind tells the substrate what a node represents.
type Kind int

const (
	KindAnchor Kind = iota
	KindTarget
	KindProjectile
)

func (k Kind) String() string {
	switch k {
	case KindAnchor:
		return "anchor"
	case KindTarget:
		return "target"
	case KindProjectile:
		return "projectile"
	default:
		return "unknown"
	}
}

// Material is the look applied to a node.
type Material int

const (
	MaterialDefault Material = iota
	MaterialFrozen
	MaterialBolt
)

// Group is a collision group bit.
type Group uint32

const (
	GroupTarget Group = 1 << iota
	GroupProjectile
)

// Collider is a sphere attached to a node, with Radius in world units regardless of node
// scale. Two colliders interact only if each one's mask includes the other's group.
type Collider struct {
	Radius float64
	Group  Group
	Mask   Group
}

// Contact is a begun overlap between two colliders, with A < B.
type Contact struct {
	A, B Handle
}

// Other returns the handle in c that is not h, or false if h is not part of c.
func (c Contact) Other(h Handle) (Handle, bool) {
	switch h {
	case c.A:
		return c.B, true
	case c.B:
		return c.A, true
	}
	return 0, false
}

// Scene is what the engine needs from a renderer. Poses are relative to the parent node.
// Operations on removed or unknown handles are no-ops.
type Scene interface {
	Spawn(kind Kind, parent Handle, pose core.Pose) Handle
	SetPose(h Handle, pose core.Pose)
	SetMaterial(h Handle, m Material)
	SetModel(h Handle, m assets.Model)
	AttachCollider(h Handle, c Collider)
	Remove(h Handle)
	CameraPose() core.Pose
}
