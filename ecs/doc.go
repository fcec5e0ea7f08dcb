// Package ecs provides ECS adapters for gesture engines.
//
// The primary adapter is [NewDonburiSink], which bridges gesture events
// (begin, update, end and their tentative forms) into a [Donburi] world as
// typed events. Subscribe to [GestureEventType] in your ECS systems to
// receive them.
//
// Usage:
//
//	sink := ecs.NewDonburiSink(world)
//	engine.SetEventSink(sink)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
