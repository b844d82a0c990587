package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"forge/internal/cache"
	"forge/internal/config"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [path]",
	Short: "Remove forge build artifacts",
	Long:  "Remove the target directory used for forge build artifacts, and optionally the persistent build cache.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().Bool("cache", false, "also drop the persistent build cache")
}

func runClean(cmd *cobra.Command, args []string) error {
	dropCache, err := cmd.Flags().GetBool("cache")
	if err != nil {
		return err
	}

	baseDir := "."
	if len(args) > 0 && args[0] != "" {
		baseDir = args[0]
	}
	root := baseDir
	if manifestPath, found := config.Find(baseDir); found {
		root = filepath.Dir(manifestPath)
	}

	targetDir := filepath.Join(root, "target")
	info, err := os.Stat(targetDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		_, _ = fmt.Fprintln(os.Stdout, "target directory not found")
	case err != nil:
		return fmt.Errorf("failed to stat %q: %w", targetDir, err)
	case !info.IsDir():
		return fmt.Errorf("%q is not a directory", targetDir)
	default:
		if err := os.RemoveAll(targetDir); err != nil {
			return fmt.Errorf("failed to remove %q: %w", targetDir, err)
		}
		_, _ = fmt.Fprintf(os.Stdout, "removed %s\n", targetDir)
	}

	if dropCache {
		disk, err := cache.OpenDiskCache("forge")
		if err != nil {
			return err
		}
		if err := disk.DropAll(); err != nil {
			return fmt.Errorf("failed to drop build cache: %w", err)
		}
		_, _ = fmt.Fprintln(os.Stdout, "dropped build cache")
	}
	return nil
}
