// Package ecs provides ECS adapters for umbra's scene event system.
//
// The primary adapter is [NewDonburiStore], which bridges umbra scene events
// (entity added, deleted, moved, selected, lightmaps baked) into a [Donburi]
// world as typed events. Subscribe to [SceneEventType] in your ECS systems
// to receive them.
//
// Usage:
//
//	store := ecs.NewDonburiStore(world)
//	scene.SetEntityStore(store)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
