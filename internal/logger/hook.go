package logger

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
)

const filteredField = "_filtered"

// AsyncHook ghi log bất đồng bộ qua một channel có buffer, không block request handling
type AsyncHook struct {
	writers []io.Writer
	entries chan *logrus.Entry
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
}

// NewAsyncHook tạo async hook với danh sách writers (file, stdout)
func NewAsyncHook(writers []io.Writer, bufferSize int) *AsyncHook {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	h := &AsyncHook{writers: writers, entries: make(chan *logrus.Entry, bufferSize)}
	h.wg.Add(1)
	go h.run()
	return h
}

func (h *AsyncHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire không bao giờ block: channel đầy thì entry bị bỏ
func (h *AsyncHook) Fire(entry *logrus.Entry) error {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()

	if closed {
		h.write(entry)
		return nil
	}

	select {
	case h.entries <- entry.Dup():
	default:
	}
	return nil
}

func (h *AsyncHook) run() {
	defer h.wg.Done()
	for entry := range h.entries {
		func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Fprintf(os.Stderr, "[LOGGER PANIC] %v\n", r)
					debug.PrintStack()
				}
			}()
			h.write(entry)
		}()
	}
}

func (h *AsyncHook) write(entry *logrus.Entry) {
	if filtered, ok := entry.Data[filteredField].(bool); ok && filtered {
		return
	}
	delete(entry.Data, filteredField)

	var data []byte
	var err error
	if entry.Logger != nil && entry.Logger.Formatter != nil {
		data, err = entry.Logger.Formatter.Format(entry)
	} else {
		var line string
		line, err = entry.String()
		data = []byte(line)
	}
	if err != nil {
		return
	}
	for _, w := range h.writers {
		_, _ = w.Write(data)
	}
}

// Close đóng hook và đợi ghi hết các entry còn trong buffer
func (h *AsyncHook) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	close(h.entries)
	h.wg.Wait()
	return nil
}
