// Package main is the entry point for the callmedia CLI.
//
// Usage:
//
//	callmedia [flags] <command> [args]
//
// Commands:
//
//	devices  - List capture devices
//	record   - Capture camera, microphone or screen and save a recording
//	inspect  - Show the tracks and samples of a recording
package main

import (
	"fmt"
	"os"

	"github.com/talky/callmedia/cmd/callmedia/commands"

	// Device drivers
	_ "github.com/talky/callmedia/pkg/driver/camera"
	_ "github.com/talky/callmedia/pkg/driver/microphone"
	_ "github.com/talky/callmedia/pkg/driver/screen"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
