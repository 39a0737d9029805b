// Package umbra is a 2D scene editor core with per-entity baked lighting.
//
// Umbra keeps entities in a spatial bucket grid, renders them through a
// multi-pass lighting pipeline, and bakes static lights into per-entity
// lightmaps. Drawing and input go through small interfaces ([Backend] and
// [InputBackend]) so the same scene runs headless in tests and on
// [Ebitengine] through the umbra/ebitenbackend package.
//
// # Quick start
//
//	prefs, _ := umbra.LoadPreferences("umbra.json")
//	scene := umbra.NewScene(nil, prefs)
//	cat, _ := umbra.LoadCatalog("templates")
//	ed := umbra.NewEditor(scene, cat)
//
//	// once per frame
//	ed.Step(umbra.Snapshot(input))
//	scene.Frame(dt)
//
// # Entities and buckets
//
// An [Entity] is static, dynamic, or temporary. Static entities take part
// in baking: they receive lightmaps, and static lights and shadow casters
// on them are baked in. Dynamic entities are lit every frame. Temporary
// entities expire after their lifetime.
//
// The [BucketManager] owns every entity and its [EntityID]. Moving an
// entity relocates it between buckets immediately, and
// [BucketManager.GetVisibleEntities] returns the contents of the buckets
// around the camera in a deterministic order.
//
// # Frames
//
// [Scene.Frame] runs update, cull, render, and lightmap invalidation in
// that order. Edits made between frames, including everything the [Editor]
// does in [Editor.Step], are seen by the next frame. Lightmap bakes can run
// synchronously or on a worker; a newer request always supersedes an older
// one.
//
// # Files
//
// Scenes save as JSON (.json) or MessagePack (.umbrab). Entity templates
// are YAML files ending in .ent.yaml, loaded into a [Catalog]. Editor
// preferences persist to a JSON file on every change.
//
// # Logging
//
// Umbra logs through [zap]. The package logger is a no-op until
// [SetLogger] or [InitLogFile] is called.
//
// [Ebitengine]: https://ebitengine.org
// [zap]: https://github.com/uber-go/zap
package umbra
