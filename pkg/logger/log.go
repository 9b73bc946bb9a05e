package logger

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type LogConfig struct {
	Dir            string
	FilenamePrefix string
	Level          slog.Level
	AddSource      bool
}

var (
	loggerOnce sync.Once
	onceLogger *slog.Logger
)

// InitLogger builds the process logger: colored text on stderr plus a
// dated append-only file under cfg.Dir. Subsequent calls return the
// logger built by the first call.
func InitLogger(cfg *LogConfig) (*slog.Logger, error) {
	var initErr error
	loggerOnce.Do(func() {
		if cfg.Dir == "" {
			cfg.Dir = "/var/log/egpuctl"
		}
		if cfg.FilenamePrefix == "" {
			cfg.FilenamePrefix = "egpuctl"
		}

		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			initErr = fmt.Errorf("create log directory failed: %w", err)
			return
		}

		opts := &slog.HandlerOptions{
			Level:     cfg.Level,
			AddSource: cfg.AddSource,
		}

		termHandler := NewColorHandler(os.Stderr, opts)

		filename := fmt.Sprintf("%s-%s.log", cfg.FilenamePrefix, time.Now().Format("2006-01-02"))
		file, err := os.OpenFile(filepath.Join(cfg.Dir, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			initErr = fmt.Errorf("open log file failed: %w", err)
			return
		}
		fileHandler := slog.NewTextHandler(file, opts)

		onceLogger = slog.New(NewMultiHandler(termHandler, fileHandler))
		slog.SetDefault(onceLogger)
	})

	if initErr != nil {
		return nil, initErr
	}

	return onceLogger, nil
}

func GetLogger() *slog.Logger {
	if onceLogger != nil {
		return onceLogger
	}

	return slog.Default()
}

type MultiHandler struct {
	handlers []slog.Handler
}

func NewMultiHandler(handlers ...slog.Handler) slog.Handler {
	return &MultiHandler{handlers: handlers}
}

func (mh *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range mh.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (mh *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var handlerErr error

	for _, h := range mh.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}

		if err := h.Handle(ctx, r); err != nil && handlerErr == nil {
			handlerErr = err
		}
	}

	return handlerErr
}

func (mh *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(mh.handlers))
	for i, h := range mh.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}

	return &MultiHandler{handlers: handlers}
}

func (mh *MultiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(mh.handlers))
	for i, h := range mh.handlers {
		handlers[i] = h.WithGroup(name)
	}

	return &MultiHandler{handlers: handlers}
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

type ColorHandler struct {
	out   *os.File
	inner slog.Handler
	opts  *slog.HandlerOptions
}

func NewColorHandler(out *os.File, opts *slog.HandlerOptions) slog.Handler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}

	return &ColorHandler{
		out:   out,
		inner: slog.NewTextHandler(out, opts),
		opts:  opts,
	}
}

func (h *ColorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ColorHandler) Handle(ctx context.Context, r slog.Record) error {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, h.opts)
	if err := handler.Handle(ctx, r); err != nil {
		return err
	}

	var color string
	switch {
	case r.Level >= slog.LevelError:
		color = colorRed
	case r.Level == slog.LevelWarn:
		color = colorYellow
	case r.Level == slog.LevelInfo:
		color = ""
	default:
		color = colorGreen
	}

	if color != "" {
		_, _ = h.out.Write([]byte(color))
	}
	_, err := h.out.Write(buf.Bytes())
	if color != "" {
		_, _ = h.out.Write([]byte(colorReset))
	}

	return err
}

func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ColorHandler{
		out:   h.out,
		inner: h.inner.WithAttrs(attrs),
		opts:  h.opts,
	}
}

func (h *ColorHandler) WithGroup(name string) slog.Handler {
	return &ColorHandler{
		out:   h.out,
		inner: h.inner.WithGroup(name),
		opts:  h.opts,
	}
}
