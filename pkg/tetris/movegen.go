package tetris

// maxRotations bounds the rotation states of any piece.
const maxRotations = 4

// poseSet is a dense visited set over every (x, y, rot) a piece can occupy.
type poseSet [maxRotations * Height * Width]bool

func poseIndex(p Pose) int {
	return (p.Rot*Height+p.Y)*Width + p.X
}

func (s *poseSet) has(p Pose) bool { return s[poseIndex(p)] }
func (s *poseSet) add(p Pose)      { s[poseIndex(p)] = true }

func wrapRot(rot, n int) int {
	return (rot%n + n) % n
}

// transition is one edge of the action graph.
type transition struct {
	action Action
	to     Pose
}

// step applies a single action to pose p of kind k. The second result is
// false when the destination collides.
func (r *Rules) step(b *Board, k Kind, p Pose, a Action) (Pose, bool) {
	spec := &r.pieces[k.index()]
	n := len(spec.shapes)
	to := p
	switch a {
	case ActionNone:
		return p, true
	case ActionLeft:
		to.X--
	case ActionRight:
		to.X++
	case ActionDrop:
		to.Y++
	case ActionRotateCW:
		off := spec.kicks[p.Rot]
		to = Pose{X: p.X + off.DX, Y: p.Y + off.DY, Rot: wrapRot(p.Rot+1, n)}
	case ActionRotateCCW:
		rot := wrapRot(p.Rot-1, n)
		off := spec.kicks[rot]
		to = Pose{X: p.X - off.DX, Y: p.Y - off.DY, Rot: rot}
	default:
		return p, false
	}
	if b.Collides(&spec.shapes[to.Rot], to.X, to.Y) {
		return p, false
	}
	return to, true
}

var graphActions = [...]Action{ActionLeft, ActionRight, ActionDrop, ActionRotateCCW, ActionRotateCW}

// transitions appends the collision-free moves out of p, in a fixed order.
// Rotations that leave the pose unchanged (the O piece) are skipped.
func (r *Rules) transitions(b *Board, k Kind, p Pose, out []transition) []transition {
	for _, a := range graphActions {
		to, ok := r.step(b, k, p, a)
		if ok && to != p {
			out = append(out, transition{action: a, to: to})
		}
	}
	return out
}

// reachable marks every pose of k that some collision-free action sequence
// leads to from the spawn pose. It walks an explicit worklist, so the cost is
// bounded by the number of poses regardless of board shape.
func (r *Rules) reachable(b *Board, k Kind, seen *poseSet) {
	spawn := r.Spawn(k)
	if b.Collides(r.Shape(k, spawn.Rot), spawn.X, spawn.Y) {
		return
	}
	seen.add(spawn)
	work := make([]Pose, 0, 64)
	work = append(work, spawn)
	next := make([]transition, 0, len(graphActions))
	for len(work) > 0 {
		p := work[len(work)-1]
		work = work[:len(work)-1]
		next = r.transitions(b, k, p, next[:0])
		for _, t := range next {
			if !seen.has(t.to) {
				seen.add(t.to)
				work = append(work, t.to)
			}
		}
	}
}

// LegalMoves returns every lock pose of k that is reachable from spawn,
// ordered by rotation, then column, then row.
func (r *Rules) LegalMoves(b *Board, k Kind) []Move {
	var seen poseSet
	r.reachable(b, k, &seen)

	var moves []Move
	for rot := range r.Rotations(k) {
		s := r.Shape(k, rot)
		for x := 0; x <= Width-s.W; x++ {
			for y := 0; y <= Height-s.H; y++ {
				if seen.has(Pose{X: x, Y: y, Rot: rot}) && b.Collides(s, x, y+1) {
					moves = append(moves, Move{Kind: k, X: x, Y: y, Rot: rot})
				}
			}
		}
	}
	return moves
}

// LegalMovesByKind generates moves for every kind, for positions whose
// upcoming piece is not yet known. The result is indexed in AllKinds order.
func (r *Rules) LegalMovesByKind(b *Board) [NumKinds][]Move {
	var out [NumKinds][]Move
	for i, k := range AllKinds {
		out[i] = r.LegalMoves(b, k)
	}
	return out
}

// IsLegal reports whether m is a reachable lock pose on b.
func (r *Rules) IsLegal(b *Board, m Move) bool {
	if !m.Kind.Valid() || m.Rot < 0 || m.Rot >= r.Rotations(m.Kind) {
		return false
	}
	if !b.IsLockPose(r.Shape(m.Kind, m.Rot), m.X, m.Y) {
		return false
	}
	var seen poseSet
	r.reachable(b, m.Kind, &seen)
	return seen.has(m.Pose())
}
