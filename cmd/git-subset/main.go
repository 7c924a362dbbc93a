// git-subset creates a new branch containing only the history of selected
// paths, see the gitsubset package for the rewriting rules.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/spf13/cobra"

	"github.com/gitsubset/gitsubset"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootCmd struct {
	*cobra.Command

	quiet      bool
	force      bool
	noCache    bool
	repoPath   string
	branch     string
	filterFile string
	configPath string
	paths      []string
}

func newRootCmd() *rootCmd {
	c := &rootCmd{
		Command: &cobra.Command{
			Use:   "git-subset [flags] [revision]",
			Short: "create a branch containing only the history of selected paths",
			Args:  cobra.MaximumNArgs(1),
		},
		repoPath: ".",
	}

	c.Flags().BoolVarP(&c.quiet, "quiet", "q", c.quiet, "don't print as much progress")
	c.Flags().BoolVarP(&c.force, "force", "f", c.force, "overwrite the branch if it exists")
	c.Flags().BoolVar(&c.noCache, "no-cache", c.noCache, "don't load or save the object map")
	c.Flags().StringVarP(&c.repoPath, "repo", "r", c.repoPath, "path to the repository")
	c.Flags().StringVarP(&c.branch, "branch", "b", c.branch, "name of the branch to create on the rewritten commits")
	c.Flags().StringVar(&c.filterFile, "filter-file", c.filterFile, "path to the file containing paths to keep")
	c.Flags().StringVarP(&c.configPath, "config", "c", c.configPath, "path to a YAML run configuration")
	c.Flags().StringArrayVarP(&c.paths, "path", "p", nil, "path to include, can be repeated")

	c.RunE = func(_ *cobra.Command, args []string) error {
		c.SilenceUsage = true
		c.SilenceErrors = true

		if err := c.run(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return err
		}

		return nil
	}

	return c
}

func (c *rootCmd) run(args []string) error {
	revexpr := "HEAD"
	if len(args) > 0 {
		revexpr = args[0]
	}

	filter := gitsubset.NewFilter()

	if c.configPath != "" {
		data, err := os.ReadFile(c.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config '%s': %w", c.configPath, err)
		}
		config, err := gitsubset.ParseConfigYAML(data)
		if err != nil {
			return fmt.Errorf("failed to parse config '%s': %w", c.configPath, err)
		}
		filter = config.Filter()
		if c.branch == "" {
			c.branch = config.Branch
		}
		if len(args) == 0 && config.Revision != "" {
			revexpr = config.Revision
		}
	}

	if c.filterFile != "" {
		loaded, err := gitsubset.LoadFilterFile(c.filterFile)
		if err != nil {
			return fmt.Errorf("failed to load filter file '%s': %w", c.filterFile, err)
		}
		filter = loaded
	}

	for _, p := range c.paths {
		filter.InsertInclude(p)
	}

	if filter.IsEmpty() && !filter.Exclude() {
		return fmt.Errorf("%w: specify paths to include with --filter-file, --config or --path", gitsubset.ErrEmptyFilter)
	}
	if c.branch == "" {
		return errors.New("a branch name is required, use --branch")
	}

	if c.quiet {
		gitsubset.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	}

	repo, err := git.PlainOpen(c.repoPath)
	if err != nil {
		return fmt.Errorf("failed to open repository '%s': %w", c.repoPath, err)
	}

	// The map file is named by the filter's structural hash so a changed
	// filter never reuses a stale map.
	mapName := filter.Hash()

	omap := gitsubset.NewOidMap()
	var dotgit *filesystem.Storage
	if st, ok := repo.Storer.(*filesystem.Storage); ok {
		dotgit = st
	}

	if !c.noCache && dotgit != nil {
		omap, err = gitsubset.LoadOidMapFile(dotgit.Filesystem(), mapName)
		if err != nil {
			return fmt.Errorf("failed to load object map: %w", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var progress gitsubset.ProgressFunc
	if !c.quiet {
		progress = func(done, total int, h plumbing.Hash) {
			fmt.Printf("\rRewriting %s (%d/%d) - %3.0f%%", h, done, total, float64(done)/float64(total)*100)
			if done == total {
				fmt.Println()
			}
		}
	}

	tip, runErr := gitsubset.SubsetBranch(ctx, repo, omap, filter, revexpr, c.branch, c.force, progress)

	// The accumulated map is persisted even when the run fails, a later
	// invocation picks up the finished rewrites.
	if !c.noCache && dotgit != nil {
		if err := gitsubset.SaveOidMapFile(dotgit.Filesystem(), mapName, omap); err != nil {
			if runErr == nil {
				runErr = fmt.Errorf("failed to write object map: %w", err)
			} else {
				fmt.Fprintf(os.Stderr, "Error: failed to write object map: %v\n", err)
			}
		}
	}

	if runErr != nil {
		if errors.Is(runErr, gitsubset.ErrOnlyEmptyCommits) {
			return fmt.Errorf("%w: no branch created", gitsubset.ErrOnlyEmptyCommits)
		}

		return runErr
	}

	if !c.quiet {
		fmt.Printf("Branch '%s' created at %s.\n", c.branch, tip)
	}

	return nil
}
