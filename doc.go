// Package shaderlive compiles WGSL shader programs and rebuilds them while
// their source files are edited.
//
// # Overview
//
// A Workspace ties four parts together:
//   - resolve flattens a shader file and its #pragma include directives into
//     one source and records where every line came from.
//   - program compiles and links vertex/fragment pairs on a backend and keeps
//     the last valid build of each named program.
//   - watch reports file changes from a background goroutine.
//   - reload queues those changes and applies them once per frame.
//
// # Quick Start
//
//	ws, err := shaderlive.Open(shaderlive.WithLogger(slog.Default()))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer ws.Close()
//
//	p := ws.Load("plasma", "shaders/plasma.vert.wgsl", "shaders/plasma.frag.wgsl")
//	if !p.Valid {
//		fmt.Println(p.Diagnostic)
//	}
//
//	for running {
//		ws.Frame()
//		// draw with ws.Registry().Get("plasma")
//	}
//
// # Reload behavior
//
// A failed rebuild never replaces a working program. The failure is reported
// to listeners and kept as the program's last failure; the previous build
// stays bound until a later edit compiles.
//
// # Threading
//
// Everything except the watch goroutine runs on the goroutine that calls
// Open, Load, Frame and Close.
package shaderlive

// Version is the current version of shaderlive.
const Version = "0.1.0"
