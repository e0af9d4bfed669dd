// Package watch notifies callers when files on disk change.
//
// A Service owns one fsnotify watcher and one goroutine. Files are watched
// through their parent directory, so editors that save by writing a temporary
// file and renaming it over the original are still observed:
//
//	svc := watch.New(watch.WithLogger(logger))
//	if err := svc.Start(); err != nil {
//		return err
//	}
//	defer svc.Stop()
//
//	err := svc.AddWatch("shaders/plasma.frag.wgsl", func(path string) {
//		queue.Notify(path)
//	})
//
// Callbacks run on the service goroutine. They must not call Stop.
package watch
