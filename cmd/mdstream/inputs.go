package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/term"

	"pkt.systems/mdstream"
)

type inputSource struct {
	name string
	open func(ctx context.Context) (io.ReadCloser, error)
}

// inputChain reads its sources one after another, opening each lazily.
type inputChain struct {
	ctx     context.Context
	sources []inputSource
	idx     int
	cur     io.ReadCloser
	closed  bool
}

func (c *inputChain) Read(p []byte) (int, error) {
	for {
		if c.closed {
			return 0, io.EOF
		}
		if c.cur == nil {
			if c.idx >= len(c.sources) {
				c.closed = true
				return 0, io.EOF
			}
			src := c.sources[c.idx]
			rc, err := src.open(c.ctx)
			if err != nil {
				return 0, fmt.Errorf("open %s: %w", src.name, err)
			}
			c.cur = rc
			c.idx++
		}
		n, err := c.cur.Read(p)
		if n > 0 {
			return n, nil
		}
		if err == io.EOF {
			_ = c.cur.Close()
			c.cur = nil
			continue
		}
		if err != nil {
			return 0, err
		}
	}
}

func (c *inputChain) Close() error {
	c.closed = true
	if c.cur != nil {
		return c.cur.Close()
	}
	return nil
}

func openInputs(ctx context.Context, args []string) (io.Reader, io.Closer, error) {
	if len(args) == 0 {
		return os.Stdin, nil, nil
	}
	sources := make([]inputSource, 0, len(args))
	for _, raw := range args {
		src, err := makeInputSource(raw)
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, src)
	}
	chain := &inputChain{ctx: ctx, sources: sources}
	return chain, chain, nil
}

func makeInputSource(raw string) (inputSource, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return inputSource{}, fmt.Errorf("empty input argument")
	}
	if raw == "-" {
		return inputSource{name: "stdin", open: func(context.Context) (io.ReadCloser, error) {
			return io.NopCloser(os.Stdin), nil
		}}, nil
	}
	u, err := url.Parse(raw)
	if err == nil && u.Scheme != "" {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			return inputSource{name: raw, open: func(ctx context.Context) (io.ReadCloser, error) {
				return mdstream.OpenHTTP(ctx, nil, raw)
			}}, nil
		case "file":
			path := u.Path
			if path == "" {
				path = u.Host
			}
			if unescaped, err := url.PathUnescape(path); err == nil {
				path = unescaped
			}
			return inputSource{name: path, open: func(context.Context) (io.ReadCloser, error) {
				return openFile(path)
			}}, nil
		}
	}
	return inputSource{name: raw, open: func(context.Context) (io.ReadCloser, error) {
		return openFile(raw)
	}}, nil
}

func openFile(path string) (io.ReadCloser, error) {
	return os.Open(normalizePath(path))
}

func resolveOutput(path string) (io.Writer, io.Closer, error) {
	if strings.TrimSpace(path) == "" || path == "-" {
		return os.Stdout, nil, nil
	}
	clean := normalizePath(path)
	if dir := filepath.Dir(clean); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	f, err := os.Create(clean)
	if err != nil {
		return nil, nil, err
	}
	return f, f, nil
}

func normalizePath(path string) string {
	if strings.HasPrefix(path, "~/") || path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			if path == "~" {
				path = home
			} else {
				path = filepath.Join(home, path[2:])
			}
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func resolveWidth(width int, w io.Writer) int {
	if width > 0 {
		return width
	}
	return terminalWidth(w, defaultWidth)
}

func terminalWidth(w io.Writer, fallback int) int {
	if f, ok := w.(*os.File); ok {
		fd := int(f.Fd())
		if term.IsTerminal(fd) {
			if cols, _, err := term.GetSize(fd); err == nil && cols > 0 {
				return cols
			}
		}
	}
	if value := os.Getenv("COLUMNS"); value != "" {
		if cols, err := strconv.Atoi(value); err == nil && cols > 0 {
			return cols
		}
	}
	return fallback
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
