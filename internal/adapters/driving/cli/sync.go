package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/parchment-labs/stagechat/internal/adapters/driven/stage/filesystem"
	"github.com/parchment-labs/stagechat/internal/core/domain"
	"github.com/parchment-labs/stagechat/internal/logger"
)

var syncWatch bool

// watchDebounce batches rapid stage changes into one refresh.
const watchDebounce = 2 * time.Second

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronise the index with the stage",
	Long: `Diffs the stage against the last indexed state and processes every
change: new documents are indexed, modified documents re-indexed and
removed documents dropped. Unchanged documents are not touched.

With --watch, sync keeps running and refreshes whenever the stage
directory changes.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVarP(&syncWatch, "watch", "w", false, "keep watching the stage for changes")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if err := initEngine(); err != nil {
		return err
	}
	defer closeEngine()

	if err := loadIndex(cmd); err != nil {
		return err
	}

	result, err := indexerService.Refresh(cmd.Context())
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	printRefreshResult(cmd, result)

	if !syncWatch {
		return nil
	}
	return watchStage(cmd)
}

// watchStage blocks, re-running the refresh whenever the stage
// directory changes. Events are debounced so bulk copies trigger one
// pass.
func watchStage(cmd *cobra.Command) error {
	fsStage, ok := stage.(*filesystem.Stage)
	if !ok {
		return fmt.Errorf("--watch requires a filesystem stage")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, fsStage.Root()); err != nil {
		return err
	}

	cmd.Printf("Watching %s for changes...\n", fsStage.Root())

	var timer *time.Timer
	refresh := make(chan struct{}, 1)

	for {
		select {
		case <-cmd.Context().Done():
			return nil

		case event, open := <-watcher.Events:
			if !open {
				return nil
			}
			logger.Debug("Stage event: %s", event)
			// New subdirectories need their own watch.
			if event.Op.Has(fsnotify.Create) {
				_ = addWatchDirs(watcher, event.Name)
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case refresh <- struct{}{}:
				default:
				}
			})

		case err, open := <-watcher.Errors:
			if !open {
				return nil
			}
			logger.Warn("Watcher error: %v", err)

		case <-refresh:
			result, err := indexerService.Refresh(cmd.Context())
			if err != nil {
				cmd.PrintErrf("refresh failed: %v\n", err)
				continue
			}
			if result.Added+result.Modified+result.Removed+len(result.Failed) > 0 {
				printRefreshResult(cmd, result)
			}
		}
	}
}

// addWatchDirs registers a directory and its subdirectories with the
// watcher. Non-directories are ignored.
func addWatchDirs(watcher *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			logger.Warn("Watching %s: %v", path, err)
		}
		return nil
	})
}

func printRefreshResult(cmd *cobra.Command, result *domain.RefreshResult) {
	cmd.Printf("Sync complete: %d added, %d modified, %d removed.\n",
		result.Added, result.Modified, result.Removed)
	for _, f := range result.Failed {
		cmd.PrintErrf("  failed: %s: %s\n", f.DocumentID, f.Reason)
	}
}
