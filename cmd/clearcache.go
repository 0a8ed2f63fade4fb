package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Removes the cache directory (cache.dir)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := clearCache(cfg.Cache.Dir); err != nil {
			return err
		}
		newLogger(cmd).Printf("Removed %s", cfg.Cache.Dir)
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", cfg.Cache.Dir)
		return err
	},
}

func clearCache(dir string) error {
	if err := checkCacheDir(dir); err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove cache directory: %w", err)
	}
	return nil
}

// checkCacheDir refuses the filesystem root, the home and working directories
// and anything containing them.
func checkCacheDir(dir string) error {
	if dir == "" {
		return errors.New("refusing to remove cache directory: cache.dir is empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve cache directory %q: %w", dir, err)
	}
	if abs == filepath.Dir(abs) {
		return fmt.Errorf("refusing to remove cache directory %q: it is the filesystem root", dir)
	}

	protected := map[string]string{}
	if home, err := os.UserHomeDir(); err == nil {
		protected["home directory"] = home
	}
	if wd, err := os.Getwd(); err == nil {
		protected["working directory"] = wd
	}
	for name, p := range protected {
		rel, err := filepath.Rel(abs, filepath.Clean(p))
		if err != nil {
			continue
		}
		outside := rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator))
		if !outside {
			return fmt.Errorf("refusing to remove cache directory %q: it contains the %s", dir, name)
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(clearCacheCmd)
}
