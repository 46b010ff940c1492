package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/guardgen/internal/store"
)

// CacheOptions holds flags for the cache commands.
type CacheOptions struct {
	*RootOptions
	DB   string // artifact cache database; defaults to the project file cache
	Type string // list only artifacts of this type
}

// CacheListing is the result of cache list.
type CacheListing struct {
	DB        string           `json:"db"`
	Artifacts []store.Artifact `json:"artifacts"`
}

// CacheCleared is the result of cache clear.
type CacheCleared struct {
	DB      string `json:"db"`
	Removed int64  `json:"removed"`
}

// NewCacheCommand creates the cache command group.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the compiled artifact cache",
	}
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "artifact cache database (default: cache from the project file)")

	listCmd := &cobra.Command{
		Use:           "list",
		Short:         "List cached validators in insertion order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheList(opts, cmd)
		},
	}
	listCmd.Flags().StringVarP(&opts.Type, "type", "t", "", "only list artifacts of this type")

	clearCmd := &cobra.Command{
		Use:           "clear",
		Short:         "Remove every cached validator",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheClear(opts, cmd)
		},
	}

	cmd.AddCommand(listCmd, clearCmd)
	return cmd
}

// openCache opens an existing cache database. A missing database is a
// command error rather than an empty cache.
func (o *CacheOptions) openCache() (*store.Store, string, error) {
	path := o.DB
	if path == "" {
		cfg, err := loadProjectConfig(o.Config)
		if err != nil {
			return nil, "", err
		}
		path = cfg.resolve(cfg.Cache)
	}
	if path == "" {
		return nil, "", withCode(ErrCodeNotFound, fmt.Errorf("no cache database: pass --db or set cache in %s", DefaultConfigFile))
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, "", withCode(ErrCodeNotFound, fmt.Errorf("cache database not found: %s", path))
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, "", withCode(ErrCodeCacheFailed, err)
	}
	return s, path, nil
}

func runCacheList(opts *CacheOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, path, err := opts.openCache()
	if err != nil {
		return formatter.Fail(err)
	}
	defer s.Close()

	artifacts, err := s.ListArtifacts(cmd.Context(), opts.Type)
	if err != nil {
		return formatter.Fail(withCode(ErrCodeCacheFailed, err))
	}

	if formatter.Format == "json" {
		return formatter.Success(CacheListing{DB: path, Artifacts: artifacts})
	}

	if len(artifacts) == 0 {
		fmt.Fprintf(formatter.Writer, "No cached validators in %s\n", path)
		return nil
	}
	fmt.Fprintf(formatter.Writer, "%d cached validator(s) in %s\n\n", len(artifacts), path)
	for _, a := range artifacts {
		fmt.Fprintf(formatter.Writer, "  %3d  %s  %d function(s)  %s\n",
			a.Seq, formatter.Name(a.TypeName), a.Functions, formatter.Dim(shortKey(a.Key)))
	}
	return nil
}

func runCacheClear(opts *CacheOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	s, path, err := opts.openCache()
	if err != nil {
		return formatter.Fail(err)
	}
	defer s.Close()

	n, err := s.ClearArtifacts(cmd.Context())
	if err != nil {
		return formatter.Fail(withCode(ErrCodeCacheFailed, err))
	}

	if formatter.Format == "json" {
		return formatter.Success(CacheCleared{DB: path, Removed: n})
	}
	fmt.Fprintf(formatter.Writer, "%s Removed %d cached validator(s) from %s\n", formatter.Mark(true), n, path)
	return nil
}

// shortKey abbreviates an artifact key for text listings.
func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
