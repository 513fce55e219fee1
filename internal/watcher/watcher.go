package watcher

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/nvgt/nvgtbuild/internal/tlogger"
)

const changeOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// StartWatcher reports the paths of files changing under folder until ctx is
// done. Folders created later are watched as well.
func StartWatcher(ctx context.Context, folder string) (<-chan string, error) {
	wch, err := fsnotify.NewWatcher()
	if err != nil {
		tlogger.Error("msg", "Cannot start file watcher", "err", err)
		return nil, err
	}

	err = filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return wch.Add(path)
		}
		return nil
	})
	if err != nil {
		wch.Close()
		tlogger.Error("msg", "Cannot watch folder", "path", folder, "err", err)
		return nil, err
	}

	outCh := make(chan string, 100)

	go func() {
		defer wch.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-wch.Events:
				if !ok {
					return
				}
				tlogger.Debug("msg", "event", "op", event.Op.String(), "path", event.Name)
				if event.Op&changeOps == 0 {
					continue
				}
				if event.Op.Has(fsnotify.Create) {
					addIfDir(wch, event.Name)
				}
				tlogger.Info("msg", "Detected change", "path", event.Name)
				select {
				case outCh <- event.Name:
				default:
					// a rebuild is already pending
				}
			case err, ok := <-wch.Errors:
				if !ok {
					return
				}
				tlogger.Warn("msg", "Watcher error", "err", err)
			}
		}
	}()

	return outCh, nil
}

func addIfDir(wch *fsnotify.Watcher, path string) {
	filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := wch.Add(p); err != nil {
				tlogger.Warn("msg", "Cannot watch folder", "path", p, "err", err)
			}
		}
		return nil
	})
}
