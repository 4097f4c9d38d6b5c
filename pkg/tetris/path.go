package tetris

import (
	"container/heap"
	"fmt"
)

// pathNode is a frontier entry of the path search.
type pathNode struct {
	pose     Pose
	cost     int
	priority int
	seq      int
}

// frontier is a min-heap on priority; seq breaks ties first-in first-out so
// the chosen path does not depend on heap internals.
type frontier []pathNode

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	if f[i].priority != f[j].priority {
		return f[i].priority < f[j].priority
	}
	return f[i].seq < f[j].seq
}
func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any)   { *f = append(*f, x.(pathNode)) }
func (f *frontier) Pop() any {
	old := *f
	n := old[len(old)-1]
	*f = old[:len(old)-1]
	return n
}

// actionCost prices an edge. Soft drops cost 1; every other action costs the
// destination row plus one, which makes shifting and rotating cheap near the
// top of the board and pushes them ahead of the drops.
func actionCost(a Action, to Pose) int {
	if a == ActionDrop {
		return 1
	}
	return to.Y + 1
}

// proximity estimates the remaining cost: horizontal distance plus the
// shorter way around the rotation cycle.
func proximity(a, b Pose, rotations int) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	return dx + min(wrapRot(a.Rot-b.Rot, rotations), wrapRot(b.Rot-a.Rot, rotations))
}

type pathLink struct {
	from   Pose
	action Action
	set    bool
}

// Path finds an action sequence that carries m.Kind from its spawn pose to
// m's pose on b. It runs a best-first search over poses with the costs of
// actionCost and the proximity heuristic. The result is a reasonable path,
// not necessarily the shortest. A move that LegalMoves reported must always
// be connected; failure returns ErrUnreachable and never an empty path.
func (r *Rules) Path(b *Board, m Move) ([]Action, error) {
	k := m.Kind
	if !k.Valid() {
		return nil, fmt.Errorf("%w: invalid piece %v", ErrUnreachable, k)
	}
	goal := m.Pose()
	start := r.Spawn(k)
	rotations := r.Rotations(k)
	if b.Collides(r.Shape(k, start.Rot), start.X, start.Y) {
		return nil, fmt.Errorf("%w: spawn of %v is blocked", ErrUnreachable, k)
	}

	var (
		costs   [maxRotations * Height * Width]int
		links   [maxRotations * Height * Width]pathLink
		visited poseSet
	)
	visited.add(start)
	costs[poseIndex(start)] = 0

	open := &frontier{{pose: start}}
	seq := 1
	next := make([]transition, 0, len(graphActions))
	found := false
	for open.Len() > 0 {
		cur := heap.Pop(open).(pathNode)
		if cur.pose == goal {
			found = true
			break
		}
		if cur.cost > costs[poseIndex(cur.pose)] {
			continue
		}
		next = r.transitions(b, k, cur.pose, next[:0])
		for _, t := range next {
			c := cur.cost + actionCost(t.action, t.to)
			idx := poseIndex(t.to)
			if visited.has(t.to) && c >= costs[idx] {
				continue
			}
			visited.add(t.to)
			costs[idx] = c
			links[idx] = pathLink{from: cur.pose, action: t.action, set: true}
			heap.Push(open, pathNode{
				pose:     t.to,
				cost:     c,
				priority: c + proximity(goal, t.to, rotations),
				seq:      seq,
			})
			seq++
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, m)
	}

	var actions []Action
	for p := goal; p != start; {
		link := links[poseIndex(p)]
		if !link.set {
			return nil, fmt.Errorf("%w: broken predecessor chain at %+v", ErrUnreachable, p)
		}
		actions = append(actions, link.action)
		p = link.from
	}
	for i, j := 0, len(actions)-1; i < j; i, j = i+1, j-1 {
		actions[i], actions[j] = actions[j], actions[i]
	}
	return actions, nil
}

// Replay applies actions to k from its spawn pose and returns the final pose.
// Any blocked action fails with ErrCollision.
func (r *Rules) Replay(b *Board, k Kind, actions []Action) (Pose, error) {
	if !k.Valid() {
		return Pose{}, fmt.Errorf("replay: invalid piece %v", k)
	}
	p := r.Spawn(k)
	if b.Collides(r.Shape(k, p.Rot), p.X, p.Y) {
		return p, fmt.Errorf("%w: spawn of %v is blocked", ErrCollision, k)
	}
	for i, a := range actions {
		next, ok := r.step(b, k, p, a)
		if !ok {
			return p, fmt.Errorf("%w: action %d (%v) from %+v", ErrCollision, i, a, p)
		}
		p = next
	}
	return p, nil
}
