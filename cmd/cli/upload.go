package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bigredeye/gradebook/pkg/client/gradebook"
	"github.com/bigredeye/gradebook/pkg/targz"
)

func makeUploadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE.csv...",
		Short: "Upload score tables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			failed := 0
			for _, path := range args {
				if err := uploadFile(client, path); err != nil {
					log.Error("Failed to upload", zap.String("file", path), zap.Error(err))
					failed++
				}
			}
			if failed > 0 {
				return &uploadError{failed, len(args)}
			}
			return nil
		},
	}
}

func uploadFile(client *gradebook.Client, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := client.Upload(filepath.Base(path), file); err != nil {
		return err
	}
	log.Info("Uploaded", zap.String("file", path))
	return nil
}

func makeImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import ARCHIVE.tar.gz",
		Short: "Upload every .csv file of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			archive, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer archive.Close()

			total, failed := 0, 0
			err = targz.WalkFiles(archive, ".csv", func(name string, body io.Reader) error {
				total++
				if err := client.Upload(filepath.Base(name), body); err != nil {
					log.Error("Failed to upload", zap.String("file", name), zap.Error(err))
					failed++
					return nil
				}
				log.Info("Uploaded", zap.String("file", name))
				return nil
			})
			if err != nil {
				return err
			}
			if failed > 0 {
				return &uploadError{failed, total}
			}
			log.Info("Imported archive", zap.Int("files", total))
			return nil
		},
	}
}

type uploadError struct {
	failed int
	total  int
}

func (e *uploadError) Error() string {
	return fmt.Sprintf("%d of %d uploads failed, see the log above", e.failed, e.total)
}
