// Package ebitenbackend runs the umbra editor on Ebitengine.
//
// [Backend] implements umbra.Backend: sprites are drawn as textured quads
// with per-corner colors, lighting programs are Kage shaders, and baked
// lightmaps are uploaded once per version. [Input] implements
// umbra.InputBackend, and [Run] ties both to an editor:
//
//	prefs, _ := umbra.LoadPreferences("umbra.json")
//	scene := umbra.NewScene(nil, prefs)
//	cat, _ := umbra.LoadCatalog("templates")
//	ed := umbra.NewEditor(scene, cat)
//	if err := ebitenbackend.Run(ed, ebitenbackend.RunConfig{Title: "umbra"}); err != nil {
//		log.Fatal(err)
//	}
package ebitenbackend
