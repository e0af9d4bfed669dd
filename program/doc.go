// Package program compiles shader programs and keeps the last good build
// of each one.
//
// A Registry maps logical shader names to a vertex and a fragment file.
// Load resolves both files, compiles each stage through a backend.Backend
// and links them if both compiled. Reload repeats the build with the stored
// paths. The registry is fail-open: a failed build never replaces a valid
// program, so a broken edit keeps the last good preview on screen.
//
// Every build attempt is reported to the registered Listeners:
//
//	reg := program.NewRegistry(b, program.WithListener(program.ListenerFunc(func(e program.CompileEvent) {
//		if !e.Success {
//			log.Print(e.Diagnostic)
//		}
//	})))
//	reg.Load("plasma", "shaders/plasma.vert.wgsl", "shaders/plasma.frag.wgsl")
//	reg.Use("plasma")
//	reg.SetUniform("time", float32(t))
//
// A Registry is owned by the goroutine that owns the graphics context and
// is not safe for concurrent use.
package program
