package scene

import (
	"sort"
	"sync"

	"github.com/GhostbusterQuest/huntcore/internal/assets"
	"github.com/GhostbusterQuest/huntcore/pkg/core"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

type nodeData struct {
	Handle   Handle
	Kind     Kind
	Parent   Handle
	Pose     core.Pose
	Material Material
	ModelID  string
	Children []Handle
}

var (
	nodeComponent     = donburi.NewComponentType[nodeData]()
	colliderComponent = donburi.NewComponentType[Collider]()
)

// Node is a snapshot of a headless scene node.
type Node struct {
	Handle   Handle
	Kind     Kind
	Parent   Handle
	Pose     core.Pose // relative to Parent
	World    core.Pose
	Material Material
	ModelID  string
	Children []Handle
	Collider *Collider
}

// Headless is an in-memory scene: an arena of donburi entities addressed by handles,
// with parent/child links by handle and sphere colliders. It is safe for concurrent use.
type Headless struct {
	mu        sync.Mutex
	world     donburi.World
	entities  map[Handle]donburi.Entity
	roots     []Handle
	next      Handle
	camera    core.Pose
	touching  map[Contact]struct{}
	colliders *donburi.Query
}

func NewHeadless() *Headless {
	return &Headless{
		world:     donburi.NewWorld(),
		entities:  make(map[Handle]donburi.Entity),
		camera:    core.NewPose(core.Vec3{}, 1),
		touching:  make(map[Contact]struct{}),
		colliders: donburi.NewQuery(filter.Contains(nodeComponent, colliderComponent)),
	}
}

func (s *Headless) entry(h Handle) *donburi.Entry {
	e, ok := s.entities[h]
	if !ok || !s.world.Valid(e) {
		return nil
	}
	return s.world.Entry(e)
}

// Spawn creates a node under parent. An unknown parent attaches the node to the root.
func (s *Headless) Spawn(kind Kind, parent Handle, pose core.Pose) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	h := s.next

	parentEntry := s.entry(parent)
	if parentEntry == nil {
		parent = Root
	}

	e := s.world.Create(nodeComponent)
	s.entities[h] = e
	nodeComponent.SetValue(s.world.Entry(e), nodeData{
		Handle: h,
		Kind:   kind,
		Parent: parent,
		Pose:   pose,
	})

	if parentEntry != nil {
		pd := nodeComponent.Get(parentEntry)
		pd.Children = append(pd.Children, h)
	} else {
		s.roots = append(s.roots, h)
	}
	return h
}

func (s *Headless) SetPose(h Handle, pose core.Pose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if en := s.entry(h); en != nil {
		nodeComponent.Get(en).Pose = pose
	}
}

func (s *Headless) SetMaterial(h Handle, m Material) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if en := s.entry(h); en != nil {
		nodeComponent.Get(en).Material = m
	}
}

// SetModel swaps the node's representation. Pose and material are kept.
func (s *Headless) SetModel(h Handle, m assets.Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if en := s.entry(h); en != nil {
		nodeComponent.Get(en).ModelID = m.ID
	}
}

func (s *Headless) AttachCollider(h Handle, c Collider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	en := s.entry(h)
	if en == nil {
		return
	}
	if !en.HasComponent(colliderComponent) {
		en.AddComponent(colliderComponent)
	}
	colliderComponent.SetValue(en, c)
}

// Remove deletes a node and its whole subtree.
func (s *Headless) Remove(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	en := s.entry(h)
	if en == nil {
		return
	}
	parent := nodeComponent.Get(en).Parent
	if pe := s.entry(parent); pe != nil {
		pd := nodeComponent.Get(pe)
		pd.Children = without(pd.Children, h)
	} else {
		s.roots = without(s.roots, h)
	}
	s.removeTree(h)
}

func (s *Headless) removeTree(h Handle) {
	en := s.entry(h)
	if en == nil {
		return
	}
	for _, c := range nodeComponent.Get(en).Children {
		s.removeTree(c)
	}
	s.world.Remove(s.entities[h])
	delete(s.entities, h)
	for c := range s.touching {
		if c.A == h || c.B == h {
			delete(s.touching, c)
		}
	}
}

func (s *Headless) CameraPose() core.Pose {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera
}

// SetCamera moves the device camera.
func (s *Headless) SetCamera(p core.Pose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = p
}

// Node returns a snapshot of h.
func (s *Headless) Node(h Handle) (Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	en := s.entry(h)
	if en == nil {
		return Node{}, false
	}
	d := nodeComponent.Get(en)
	n := Node{
		Handle:   d.Handle,
		Kind:     d.Kind,
		Parent:   d.Parent,
		Pose:     d.Pose,
		World:    s.worldPose(h),
		Material: d.Material,
		ModelID:  d.ModelID,
		Children: append([]Handle(nil), d.Children...),
	}
	if en.HasComponent(colliderComponent) {
		c := *colliderComponent.Get(en)
		n.Collider = &c
	}
	return n, true
}

// Roots lists top-level nodes in creation order.
func (s *Headless) Roots() []Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Handle(nil), s.roots...)
}

// Len is the number of live nodes.
func (s *Headless) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entities)
}

// Count is the number of live nodes of a kind.
func (s *Headless) Count(kind Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for h := range s.entities {
		if nodeComponent.Get(s.entry(h)).Kind == kind {
			n++
		}
	}
	return n
}

// worldPose composes poses from the root down to h. Caller holds mu.
func (s *Headless) worldPose(h Handle) core.Pose {
	en := s.entry(h)
	if en == nil {
		return core.NewPose(core.Vec3{}, 1)
	}
	d := nodeComponent.Get(en)
	if d.Parent == Root {
		return d.Pose
	}
	parent := s.worldPose(d.Parent)
	return core.Pose{
		Position:    parent.Position.Add(parent.Orientation.Rotate(d.Pose.Position.Mul(parent.Scale))),
		Orientation: parent.Orientation.Mul(d.Pose.Orientation),
		Scale:       parent.Scale.Mul(d.Pose.Scale),
	}
}

// DetectContacts returns overlaps that began since the previous call, ordered by handle.
// Pairs that stop overlapping can begin again later.
func (s *Headless) DetectContacts() []Contact {
	s.mu.Lock()
	defer s.mu.Unlock()

	type body struct {
		h   Handle
		pos core.Vec3
		c   Collider
	}
	var bodies []body
	s.colliders.Each(s.world, func(en *donburi.Entry) {
		h := nodeComponent.Get(en).Handle
		c := *colliderComponent.Get(en)
		bodies = append(bodies, body{h: h, pos: s.worldPose(h).Position, c: c})
	})
	sort.Slice(bodies, func(i, j int) bool { return bodies[i].h < bodies[j].h })

	now := make(map[Contact]struct{})
	var begun []Contact
	for i := range bodies {
		for j := i + 1; j < len(bodies); j++ {
			a, b := bodies[i], bodies[j]
			if a.c.Mask&b.c.Group == 0 || b.c.Mask&a.c.Group == 0 {
				continue
			}
			if a.pos.Dist(b.pos) > a.c.Radius+b.c.Radius {
				continue
			}
			c := Contact{A: a.h, B: b.h}
			now[c] = struct{}{}
			if _, ok := s.touching[c]; !ok {
				begun = append(begun, c)
			}
		}
	}
	s.touching = now
	return begun
}

func without(hs []Handle, h Handle) []Handle {
	out := hs[:0]
	for _, x := range hs {
		if x != h {
			out = append(out, x)
		}
	}
	return out
}

var _ Scene = (*Headless)(nil)
