package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "callmedia",
	Short: "Capture and record call media",
	Long: `callmedia - capture camera, microphone and screen the way a call does.

Devices are picked by the same constraints a call uses. Recordings are
written as a sample container and can be stored on disk or in S3.

Examples:
  # List devices
  callmedia devices

  # Record camera and microphone for ten seconds
  callmedia record --video --audio --duration 10s --out recordings

  # Share the screen and upload the recording
  callmedia record --screen --audio --s3-bucket talky-recordings

  # Show what was recorded
  callmedia inspect recordings/3f0c....cmr`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file")
}
