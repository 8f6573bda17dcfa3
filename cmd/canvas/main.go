// Command canvas serves, renders and edits strategy canvases.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
