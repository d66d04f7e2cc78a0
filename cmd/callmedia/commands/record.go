package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"
	"github.com/talky/callmedia"
	"github.com/talky/callmedia/pkg/session"
	"github.com/talky/callmedia/pkg/storage"
)

var (
	recordVideo    bool
	recordAudio    bool
	recordScreen   bool
	recordDuration time.Duration
	recordOut      string
	recordName     string
	recordBucket   string
	recordPrefix   string
	recordRegion   string
	recordEndpoint string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Capture devices and save a recording",
	Long: `Capture the selected devices, record them and save the recording.

Recording stops after --duration, or on Ctrl-C. The recording is saved in
the --out directory, or uploaded to --s3-bucket when given. Credentials for
S3 are read from AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and
AWS_SESSION_TOKEN.`,
	Args: cobra.NoArgs,
	RunE: runRecord,
}

func init() {
	f := recordCmd.Flags()
	f.BoolVar(&recordVideo, "video", false, "capture the camera")
	f.BoolVar(&recordAudio, "audio", false, "capture the microphone")
	f.BoolVar(&recordScreen, "screen", false, "capture the screen")
	f.DurationVarP(&recordDuration, "duration", "d", 10*time.Second, "recording length")
	f.StringVarP(&recordOut, "out", "o", "", "output directory (default from config, \"recordings\")")
	f.StringVar(&recordName, "name", "", "recording name (default generated)")
	f.StringVar(&recordBucket, "s3-bucket", "", "upload to this S3 bucket")
	f.StringVar(&recordPrefix, "s3-prefix", "", "S3 key prefix")
	f.StringVar(&recordRegion, "s3-region", "", "S3 region")
	f.StringVar(&recordEndpoint, "s3-endpoint", "", "S3 compatible endpoint URL")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	if !recordVideo && !recordAudio && !recordScreen {
		return errors.New("nothing to record, use --video, --audio or --screen")
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	applyRecordFlags(cmd, cfg)

	sink, err := newSink(cfg)
	if err != nil {
		return err
	}
	opts, err := cfg.sessionOptions()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	m := session.NewManager(callmedia.NewMediaDevices(), opts...)
	defer m.Close()

	blob, err := record(ctx, m)
	if err != nil {
		return err
	}

	loc, err := sink.Save(context.WithoutCancel(ctx), recordName, blob)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d bytes to %s\n", blob.Size(), loc)
	return nil
}

// record drives the session through one recording. Device failures are
// reported through the session state and turned into errors here.
func record(ctx context.Context, m *session.Manager) (*callmedia.Blob, error) {
	steps := []struct {
		enabled bool
		name    string
		run     func(context.Context) error
	}{
		{recordAudio, "microphone", m.StartAudio},
		{recordVideo, "camera", m.StartVideo},
		{recordScreen, "screen", m.StartScreenShare},
	}
	for _, s := range steps {
		if !s.enabled {
			continue
		}
		if err := s.run(ctx); err != nil {
			return nil, err
		}
		if err := m.State().Err; err != nil {
			return nil, fmt.Errorf("failed to capture %s: %w", s.name, err)
		}
	}

	if err := m.StartRecording(ctx); err != nil {
		return nil, err
	}

	select {
	case <-time.After(recordDuration):
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	blob, err := m.StopRecording(stopCtx)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, errors.New("nothing was recorded")
	}
	return blob, nil
}

func applyRecordFlags(cmd *cobra.Command, cfg *Config) {
	f := cmd.Flags()
	if f.Changed("out") {
		cfg.Storage.Dir = recordOut
	}
	if f.Changed("s3-bucket") {
		cfg.Storage.S3.Bucket = recordBucket
	}
	if f.Changed("s3-prefix") {
		cfg.Storage.Prefix = recordPrefix
	}
	if f.Changed("s3-region") {
		cfg.Storage.S3.Region = recordRegion
	}
	if f.Changed("s3-endpoint") {
		cfg.Storage.S3.Endpoint = recordEndpoint
	}
}

func newSink(cfg *Config) (storage.Sink, error) {
	if cfg.Storage.S3.Bucket == "" {
		return storage.NewLocal(cfg.Storage.Dir)
	}

	s3cfg := cfg.Storage.S3
	client := s3.New(s3.Options{
		Region:       s3cfg.Region,
		UsePathStyle: s3cfg.UsePathStyle,
		Credentials:  aws.NewCredentialsCache(aws.CredentialsProviderFunc(envCredentials)),
	}, func(o *s3.Options) {
		if s3cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s3cfg.Endpoint)
		}
	})
	return storage.NewS3(client, s3cfg.Bucket, cfg.Storage.Prefix), nil
}

func envCredentials(context.Context) (aws.Credentials, error) {
	creds := aws.Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return aws.Credentials{}, errors.New("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}
	return creds, nil
}
