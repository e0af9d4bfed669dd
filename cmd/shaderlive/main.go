// Command shaderlive compiles WGSL shader programs and reloads them on edit.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
