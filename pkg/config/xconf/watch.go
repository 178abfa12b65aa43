package xconf

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/juju/clock"

	"github.com/omeyang/xrx/pkg/reactive/xrx"
)

// Reload 一次配置重载的结果。
// Err 非 nil 时 Config 仍持有上一次成功加载的内容。
type Reload struct {
	Config Config
	Err    error
}

// WatchSource 将配置文件的变更暴露为 Source。
//
// 每次订阅创建独立的 fsnotify 监视器，监视文件所在目录以兼容
// 先写临时文件再 rename 的编辑器。防抖窗口内的多次变更合并为一次
// Reload 调用。重载失败与监视器错误以 Reload.Err 的形式作为值发射，
// 单次错误编辑不会终止流；只有监视器无法创建时才以 ErrWatchFailed 结束。
func WatchSource(cfg Config, opts ...WatchOption) xrx.Source[Reload] {
	if cfg == nil || cfg.Path() == "" {
		return xrx.Throw[Reload](ErrNotReloadable)
	}
	o := applyWatchOptions(opts)

	return xrx.Create(func(sub xrx.Subscriber[Reload]) xrx.Teardown {
		fw, err := fsnotify.NewWatcher()
		if err != nil {
			sub.OnError(fmt.Errorf("%w: %w", ErrWatchFailed, err))
			return nil
		}
		dir := filepath.Dir(cfg.Path())
		if err := fw.Add(dir); err != nil {
			sub.OnError(errors.Join(fmt.Errorf("%w: %s: %w", ErrWatchFailed, dir, err), fw.Close()))
			return nil
		}

		w := &watcher{
			cfg:      cfg,
			fw:       fw,
			sub:      sub,
			clock:    o.clock,
			debounce: o.debounce,
			done:     make(chan struct{}),
		}
		go w.run()
		return w.stop
	})
}

type watcher struct {
	cfg      Config
	fw       *fsnotify.Watcher
	sub      xrx.Subscriber[Reload]
	clock    clock.Clock
	debounce time.Duration
	done     chan struct{}

	mu      sync.Mutex
	timer   clock.Timer
	stopped bool
}

func (w *watcher) run() {
	name := filepath.Base(w.cfg.Path())
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) == name && isChange(ev) {
				w.schedule()
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.sub.OnNext(Reload{Config: w.cfg, Err: fmt.Errorf("%w: %w", ErrWatchFailed, err)})
		}
	}
}

func (w *watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = w.clock.AfterFunc(w.debounce, w.reload)
}

func (w *watcher) reload() {
	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}
	w.sub.OnNext(Reload{Config: w.cfg, Err: w.cfg.Reload()})
}

func (w *watcher) stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	_ = w.fw.Close()
}

// isChange 报告事件是否可能改变文件内容，rename 对应原子写入。
func isChange(ev fsnotify.Event) bool {
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
