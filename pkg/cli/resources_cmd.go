package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"watershed/internal/resources"
)

func newUploadResourcesCmd(a *app) *cobra.Command {
	var (
		configFile  string
		force       bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "upload-resources",
		Short: "Upload cluster bootstrap resources to S3",
		Long: "Upload every file below the configured resources directory to\n" +
			"s3://<bucket>/<prefix>/. Objects that already exist are skipped unless\n" +
			"--force-upload is set. Credentials come from AWS_ACCESS_KEY_ID and\n" +
			"AWS_SECRET_ACCESS_KEY when both are set, otherwise from the AWS.profile\n" +
			"named in the config file. The region is taken from the file, then\n" +
			"AWS_REGION, then the profile.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resources.LoadConfig(configFile)
			if err != nil {
				return err
			}
			s3cfg := cfg.AWS.S3
			if s3cfg.Endpoint == "" && a.env.S3Endpoint != nil {
				s3cfg.Endpoint = *a.env.S3Endpoint
			}
			if s3cfg.Region == "" && a.env.S3Region != nil {
				s3cfg.Region = *a.env.S3Region
			}

			creds := resources.Credentials{Profile: cfg.AWS.Profile}
			if a.env.HasS3Credentials() {
				creds.KeyID = *a.env.S3KeyID
				creds.Secret = *a.env.S3Secret
				if a.env.S3SessionToken != nil {
					creds.SessionToken = *a.env.S3SessionToken
				}
			}

			store, err := a.newStore(cmd.Context(), s3cfg, creds)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Uploading resources from %s to s3://%s/%s...\n",
				s3cfg.ResourcesDir, s3cfg.Bucket, s3cfg.Prefix)

			uploader := &resources.Uploader{
				Store:       store,
				Prefix:      s3cfg.Prefix,
				Concurrency: concurrency,
				Force:       force,
				Logger:      a.logger,
			}
			results, err := uploader.Upload(cmd.Context(), s3cfg.ResourcesDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(out, results)
			}
			var uploaded, skipped int
			for _, r := range results {
				if r.Skipped {
					skipped++
					_, _ = fmt.Fprintf(out, "skipped   %s (already exists)\n", r.Key)
					continue
				}
				uploaded++
				_, _ = fmt.Fprintf(out, "uploaded  %s (%d bytes)\n", r.Key, r.Size)
			}
			_, _ = fmt.Fprintf(out, "%d uploaded, %d skipped\n", uploaded, skipped)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config-file", "c", "", "Cluster config file (required)")
	cmd.Flags().BoolVarP(&force, "force-upload", "F", false, "Upload files that already exist in the bucket")
	cmd.Flags().IntVar(&concurrency, "concurrency", resources.DefaultConcurrency, "Number of parallel uploads")
	_ = cmd.MarkFlagRequired("config-file")

	return cmd
}
