package server

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/intervention-engine/patientcard/service"
)

// Watcher reloads the service when the data file changes.  It watches the
// file's directory rather than the file so that editors which save by
// renaming a temporary file are still noticed.  Changes go through the same
// FunctionDelayer as POST /reload.
type Watcher struct {
	path    string
	key     string
	delayer *FunctionDelayer
	svc     service.RiskService
	logger  zerolog.Logger
	fsw     *fsnotify.Watcher
}

// NewWatcher starts watching path.  Reloads are scheduled under key.
func NewWatcher(path, key string, fnDelayer *FunctionDelayer, svc service.RiskService, logger zerolog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{
		path:    abs,
		key:     key,
		delayer: fnDelayer,
		svc:     svc,
		logger:  logger.With().Str("component", "watcher").Str("path", abs).Logger(),
		fsw:     fsw,
	}, nil
}

// Run handles file events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()
	w.logger.Info().Msg("watching data file")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.concerns(ev) {
				continue
			}
			w.logger.Debug().Str("op", ev.Op.String()).Msg("data file changed")
			ScheduleReload(w.delayer, w.key, w.svc, w.logger)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) concerns(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove)
}
