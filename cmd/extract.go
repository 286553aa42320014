package main

import (
	"encoding/json"
	"mime"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/submission-intake/internal/pipeline"
)

var extractCmd = &cobra.Command{
	Use:   "extract <email-file> [attachment...]",
	Short: "Run one extraction from local files and print the result",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		email, err := readDocument(args[0])
		if err != nil {
			return err
		}
		attachments := make([]pipeline.RawDocument, 0, len(args)-1)
		for _, path := range args[1:] {
			doc, err := readDocument(path)
			if err != nil {
				return err
			}
			attachments = append(attachments, doc)
		}

		out, err := env.Pipeline.Run(ctx, email, attachments)
		if err != nil {
			return eris.Wrap(err, "extract")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(out.Result), "extract: encode result")
	},
}

func readDocument(path string) (pipeline.RawDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.RawDocument{}, eris.Wrapf(err, "read %s", path)
	}
	return pipeline.RawDocument{
		Name: filepath.Base(path),
		MIME: mime.TypeByExtension(filepath.Ext(path)),
		Data: data,
	}, nil
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
