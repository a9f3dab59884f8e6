package config

import (
	"scheduler-go/logging"

	"github.com/fsnotify/fsnotify"
)

// WatchDropinDir watches the drop-in directory for changes that should
// prompt an operator to restart the daemon. Config reloads are not
// applied at runtime; this only logs so the operator knows a restart
// would pick the change up.
func WatchDropinDir(dropinDir string, done <-chan struct{}) error {
	if dropinDir == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(dropinDir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-done:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					logging.Default().Info("configuration fragment changed; restart to apply", "path", ev.Name)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Default().Warn("config watcher error", "error", err)
			}
		}
	}()

	return nil
}
