package trip

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Controller owns a Trip and keeps its ordering invariants intact: after any
// mutation, Location.Order values form a dense 0..N-1 permutation, and clip
// orders are dense within their location.
type Controller struct {
	trip *Trip
}

// NewController wraps an existing trip, normalizing any loose ordering in the
// input document.
func NewController(t *Trip) *Controller {
	c := &Controller{trip: t}
	c.normalize()
	return c
}

// Trip returns a snapshot of the current state.
func (c *Controller) Trip() *Trip { return c.trip.Snapshot() }

// AddLocation appends a location at the end of the traversal order and returns
// its generated id.
func (c *Controller) AddLocation(loc Location) string {
	if loc.ID == "" {
		loc.ID = uuid.NewString()
	}
	loc.Order = len(c.trip.Locations)
	c.trip.Locations = append(c.trip.Locations, loc)
	c.normalize()
	return loc.ID
}

// RemoveLocation deletes a location by id and renormalizes orders.
func (c *Controller) RemoveLocation(id string) error {
	idx := c.locationIndex(id)
	if idx < 0 {
		return fmt.Errorf("location %s not found", id)
	}
	c.trip.Locations = append(c.trip.Locations[:idx], c.trip.Locations[idx+1:]...)
	c.normalize()
	return nil
}

// MoveLocation places the location at the given position in traversal order.
func (c *Controller) MoveLocation(id string, newOrder int) error {
	idx := c.locationIndex(id)
	if idx < 0 {
		return fmt.Errorf("location %s not found", id)
	}
	if newOrder < 0 {
		newOrder = 0
	}
	if newOrder >= len(c.trip.Locations) {
		newOrder = len(c.trip.Locations) - 1
	}
	ordered := c.trip.SortedLocations()
	var moved Location
	rest := make([]Location, 0, len(ordered))
	for _, l := range ordered {
		if l.ID == id {
			moved = l
			continue
		}
		rest = append(rest, l)
	}
	result := make([]Location, 0, len(ordered))
	result = append(result, rest[:newOrder]...)
	result = append(result, moved)
	result = append(result, rest[newOrder:]...)
	for i := range result {
		result[i].Order = i
	}
	c.trip.Locations = result
	c.normalize()
	return nil
}

// AddClip appends a clip to a location and returns its generated id.
func (c *Controller) AddClip(locationID string, clip Clip) (string, error) {
	idx := c.locationIndex(locationID)
	if idx < 0 {
		return "", fmt.Errorf("location %s not found", locationID)
	}
	if clip.ID == "" {
		clip.ID = uuid.NewString()
	}
	if clip.Kind == MediaPhoto && clip.AnimationStyle == "" {
		clip.AnimationStyle = AnimKenBurns
	}
	clip.Order = len(c.trip.Locations[idx].Clips)
	c.trip.Locations[idx].Clips = append(c.trip.Locations[idx].Clips, clip)
	c.normalize()
	return clip.ID, nil
}

// RemoveClip deletes a clip and renormalizes clip orders within its location.
func (c *Controller) RemoveClip(locationID, clipID string) error {
	idx := c.locationIndex(locationID)
	if idx < 0 {
		return fmt.Errorf("location %s not found", locationID)
	}
	clips := c.trip.Locations[idx].Clips
	for i, cl := range clips {
		if cl.ID == clipID {
			c.trip.Locations[idx].Clips = append(clips[:i], clips[i+1:]...)
			c.normalize()
			return nil
		}
	}
	return fmt.Errorf("clip %s not found in location %s", clipID, locationID)
}

// MoveClip places a clip at the given position within its location's order.
// Out-of-range targets clamp to the ends.
func (c *Controller) MoveClip(locationID, clipID string, newOrder int) error {
	idx := c.locationIndex(locationID)
	if idx < 0 {
		return fmt.Errorf("location %s not found", locationID)
	}
	clips := c.trip.Locations[idx].Clips
	if newOrder < 0 {
		newOrder = 0
	}
	if newOrder >= len(clips) {
		newOrder = len(clips) - 1
	}
	ordered := make([]Clip, len(clips))
	copy(ordered, clips)
	sort.SliceStable(ordered, func(a, b int) bool { return ordered[a].Order < ordered[b].Order })

	var moved Clip
	found := false
	rest := make([]Clip, 0, len(ordered))
	for _, cl := range ordered {
		if cl.ID == clipID {
			moved = cl
			found = true
			continue
		}
		rest = append(rest, cl)
	}
	if !found {
		return fmt.Errorf("clip %s not found in location %s", clipID, locationID)
	}
	result := make([]Clip, 0, len(ordered))
	result = append(result, rest[:newOrder]...)
	result = append(result, moved)
	result = append(result, rest[newOrder:]...)
	for i := range result {
		result[i].Order = i
	}
	c.trip.Locations[idx].Clips = result
	c.normalize()
	return nil
}

func (c *Controller) locationIndex(id string) int {
	for i, l := range c.trip.Locations {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// normalize rewrites all order fields as dense sequences while preserving the
// current relative ordering.
func (c *Controller) normalize() {
	sort.SliceStable(c.trip.Locations, func(i, j int) bool {
		return c.trip.Locations[i].Order < c.trip.Locations[j].Order
	})
	for i := range c.trip.Locations {
		c.trip.Locations[i].Order = i
		clips := c.trip.Locations[i].Clips
		sort.SliceStable(clips, func(a, b int) bool { return clips[a].Order < clips[b].Order })
		for j := range clips {
			clips[j].Order = j
		}
	}
}
