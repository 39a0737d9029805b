package ecs

import (
	"github.com/phanxgames/umbra"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// SceneEventType is the Donburi event type for umbra scene events.
// Subscribe to this in your ECS systems to receive editor and lighting events.
var SceneEventType = events.NewEventType[umbra.SceneEvent]()

type donburiStore struct {
	world donburi.World
}

// NewDonburiStore creates an EventStore backed by a Donburi world.
// Scene events are published to SceneEventType and can be consumed with
// events.Subscribe and ProcessEvents.
func NewDonburiStore(world donburi.World) umbra.EventStore {
	return &donburiStore{world: world}
}

func (s *donburiStore) EmitEvent(event umbra.SceneEvent) {
	SceneEventType.Publish(s.world, event)
}
