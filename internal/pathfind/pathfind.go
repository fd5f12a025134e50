// Package pathfind implements the Auto-Navigation Pathfinder (§4.10): pure
// breadth-first search over the 8-neighborhood of in-map room coordinates.
// Inter-map portals are out of scope, matching the documented Open
// Question resolution — a destination on another map simply yields no
// path.
package pathfind

import (
	"github.com/lawnchairsociety/gridkeep/server/internal/worldmap"
)

// Step is one leg of a computed route.
type Step struct {
	Direction worldmap.Direction
	RoomID    string
}

// Find returns an ordered list of steps from src to dst on the same map via
// breadth-first search. Returns (nil, false) if dst is unreachable or the
// rooms live on different maps. Tie-breaking among equally short paths is
// left unspecified, as in the distilled contract; this implementation
// breaks ties by the map's internal room iteration order.
func Find(w *worldmap.World, src, dst *worldmap.Room) ([]Step, bool) {
	if src.MapID != dst.MapID {
		return nil, false
	}
	if src.ID == dst.ID {
		return []Step{}, true
	}

	type frame struct {
		room *worldmap.Room
		prev *frame
		dir  worldmap.Direction
	}

	visited := map[string]bool{src.ID: true}
	queue := []*frame{{room: src}}

	var goal *frame
	for len(queue) > 0 && goal == nil {
		cur := queue[0]
		queue = queue[1:]

		for _, n := range w.Neighbors8(cur.room) {
			if visited[n.ID] {
				continue
			}
			visited[n.ID] = true
			dir, ok := worldmap.DirectionBetween(cur.room.Coord, n.Coord)
			if !ok {
				continue
			}
			next := &frame{room: n, prev: cur, dir: dir}
			if n.ID == dst.ID {
				goal = next
				break
			}
			queue = append(queue, next)
		}
	}

	if goal == nil {
		return nil, false
	}

	var steps []Step
	for f := goal; f.prev != nil; f = f.prev {
		steps = append([]Step{{Direction: f.dir, RoomID: f.room.ID}}, steps...)
	}
	return steps, true
}
