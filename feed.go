package mdstream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

var readerPool = sync.Pool{
	New: func() any {
		return bufio.NewReaderSize(nil, 4096)
	},
}

// Appender receives chunks from a data source. Session and Runner implement it.
type Appender interface {
	Append(chunk string) error
	Finish() error
}

// FeedRequest configures Feed.
type FeedRequest struct {
	Reader io.Reader
	Target Appender
	// ChunkSize is the number of runes per Append.
	ChunkSize int
	// Delay is slept after every chunk, simulating inference token timing.
	Delay time.Duration
	// Strict rejects invalid UTF-8 and binary input instead of dropping
	// offending bytes.
	Strict bool
	// Finish calls Target.Finish after the reader is drained.
	Finish bool
}

// Feed reads text from Reader and appends it to Target in ChunkSize rune
// chunks. Control characters other than newline, carriage return and tab are
// dropped.
func Feed(ctx context.Context, req FeedRequest) error {
	if req.Reader == nil {
		return fmt.Errorf("feed: Reader is nil")
	}
	if req.Target == nil {
		return fmt.Errorf("feed: Target is nil")
	}
	if req.ChunkSize <= 0 {
		return fmt.Errorf("feed: ChunkSize must be > 0")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	reader := readerPool.Get().(*bufio.Reader)
	reader.Reset(req.Reader)
	defer func() {
		reader.Reset(nil)
		readerPool.Put(reader)
	}()
	var (
		v     inputValidator
		chunk strings.Builder
		runes int
	)
	flush := func() error {
		if runes == 0 {
			return nil
		}
		if err := req.Target.Append(chunk.String()); err != nil {
			return fmt.Errorf("feed: append: %w", err)
		}
		chunk.Reset()
		runes = 0
		return sleepContext(ctx, req.Delay)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, size, err := reader.ReadRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("feed: read: %w", err)
		}
		if req.Strict {
			if err := v.addRune(r, size); err != nil {
				return fmt.Errorf("feed: %w", err)
			}
		}
		if r == utf8.RuneError && size == 1 || isControlRune(r) {
			continue
		}
		chunk.WriteRune(r)
		runes++
		if runes >= req.ChunkSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	if req.Finish {
		if err := req.Target.Finish(); err != nil {
			return fmt.Errorf("feed: finish: %w", err)
		}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// TokenSource yields fragments of a live model response. Recv returns io.EOF
// after the last fragment.
type TokenSource interface {
	Recv(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Recv(ctx context.Context) (string, error) {
	return f(ctx)
}

// FeedTokens appends every token from src to target and finishes target at
// io.EOF. A multi-byte rune split across tokens is held back until it is
// complete; invalid bytes and control characters are dropped.
func FeedTokens(ctx context.Context, src TokenSource, target Appender) error {
	if src == nil || target == nil {
		return fmt.Errorf("feed tokens: source and target are required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var carry, clean []byte
	for {
		tok, err := src.Recv(ctx)
		if tok != "" {
			carry = append(carry, tok...)
			var rest []byte
			clean, rest = sanitizeChunk(clean[:0], carry)
			carry = append(carry[:0], rest...)
			if len(clean) > 0 {
				if err := target.Append(string(clean)); err != nil {
					return fmt.Errorf("feed tokens: append: %w", err)
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("feed tokens: recv: %w", err)
		}
	}
	if err := target.Finish(); err != nil {
		return fmt.Errorf("feed tokens: finish: %w", err)
	}
	return nil
}
