package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/talky/callmedia/pkg/container"
)

var inspectFormat string

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show the tracks and samples of a recording",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		summary, err := summarize(f)
		if err != nil {
			return err
		}

		switch inspectFormat {
		case "yaml":
			data, err := yaml.Marshal(summary)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		case "table", "":
			return printSummary(cmd.OutOrStdout(), summary)
		}
		return fmt.Errorf("unknown format %q", inspectFormat)
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "table", "output format: table or yaml")
	rootCmd.AddCommand(inspectCmd)
}

// TrackSummary describes the samples of one recorded track.
type TrackSummary struct {
	ID       string        `yaml:"id"`
	Kind     string        `yaml:"kind"`
	Label    string        `yaml:"label"`
	MimeType string        `yaml:"mime_type"`
	Samples  int           `yaml:"samples"`
	Bytes    int           `yaml:"bytes"`
	Duration time.Duration `yaml:"duration"`
}

// Summary describes a recording.
type Summary struct {
	Created time.Time      `yaml:"created"`
	Tracks  []TrackSummary `yaml:"tracks"`
}

func summarize(r io.Reader) (*Summary, error) {
	rd, err := container.NewReader(r)
	if err != nil {
		return nil, err
	}

	s := &Summary{Created: rd.Header.Created}
	index := make(map[string]int, len(rd.Header.Tracks))
	for i, t := range rd.Header.Tracks {
		index[t.ID] = i
		s.Tracks = append(s.Tracks, TrackSummary{
			ID:       t.ID,
			Kind:     t.Kind,
			Label:    t.Label,
			MimeType: t.MimeType,
		})
	}

	for {
		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		if err != nil {
			return nil, err
		}
		i, ok := index[rec.TrackID]
		if !ok {
			return nil, fmt.Errorf("sample of unknown track %q", rec.TrackID)
		}
		s.Tracks[i].Samples++
		s.Tracks[i].Bytes += len(rec.Data)
		s.Tracks[i].Duration += rec.Duration
	}
}

func printSummary(out io.Writer, s *Summary) error {
	fmt.Fprintf(out, "Created: %s\n\n", s.Created.Local().Format(time.RFC3339))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tLABEL\tMIME\tSAMPLES\tBYTES\tDURATION")
	for _, t := range s.Tracks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
			t.Kind, t.Label, t.MimeType, t.Samples, t.Bytes, t.Duration.Round(time.Millisecond))
	}
	return w.Flush()
}
