// Package resolve flattens multi-file shader sources into one compilable unit.
//
// A Resolver expands include directives recursively,
//
//	#pragma include("common/lighting.wgsl")
//
// resolving each target relative to the directory of the including file.
// While copying lines it records a LineMapping for every line of the
// flattened output, so diagnostics that a compiler reports against the
// flattened source can be attributed to the original file and line.
//
// Metadata directives (feature switches, parameter ranges and display labels)
// are recognized through the Recognizer interface, recorded in the result's
// Metadata and stripped from the source. The default grammar is:
//
//	#pragma switch(USE_FOG, true)
//	#pragma range(speed, 0.0, 2.0 * pi, 1.0)
//	#pragma label(speed, "Animation speed")
//
// Resolution never fails. Missing files, include cycles and malformed
// directives become "#error" lines in the flattened source, which the
// compiler then reports through its normal diagnostic channel.
//
// When a file cannot be read from disk, the resolver looks its base name up
// in a fallback Library of compiled-in snippets before giving up.
package resolve
