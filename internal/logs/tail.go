package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// TailOptions controls how much of the log file is read and whether to keep
// following it.
type TailOptions struct {
	// Lines limits the initial read to the last N lines. Zero means all.
	Lines int
	// Follow keeps reading appended lines until the context is canceled.
	Follow bool
	// PollInterval bounds how often a followed file is re-checked.
	PollInterval time.Duration
}

// Tail reads the log file at path and passes each line to emit. With Follow
// set it blocks until ctx is canceled, emitting lines as they are appended.
// A missing file is not an error when following; Tail waits for it to appear.
func Tail(ctx context.Context, path string, opts TailOptions, emit func(line string)) error {
	if emit == nil {
		return errors.New("tail: emit callback is required")
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	file, err := os.Open(path)
	if err != nil {
		if !opts.Follow || !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("open log file: %w", err)
		}
	}

	var offset int64
	if file != nil {
		offset, err = emitExisting(file, opts.Lines, emit)
		_ = file.Close()
		if err != nil {
			return err
		}
	}
	if !opts.Follow {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		info, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("stat log file: %w", err)
		}
		if info.Size() < offset {
			// Truncated or rotated; start over.
			offset = 0
		}
		if info.Size() == offset {
			continue
		}

		offset, err = emitFrom(path, offset, emit)
		if err != nil {
			return err
		}
	}
}

// emitExisting reads the file from the start, emitting only the last limit
// lines, and returns the offset reached.
func emitExisting(file *os.File, limit int, emit func(string)) (int64, error) {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if limit > 0 && len(lines) > limit {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read log file: %w", err)
	}
	for _, line := range lines {
		emit(line)
	}
	offset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("seek log file: %w", err)
	}
	return offset, nil
}

// emitFrom reads complete lines starting at offset and returns the offset of
// the last full line consumed.
func emitFrom(path string, offset int64, emit func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek log file: %w", err)
	}

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err == nil {
			offset += int64(len(line))
			emit(trimNewline(line))
			continue
		}
		if errors.Is(err, io.EOF) {
			// Partial line without newline stays for the next poll.
			return offset, nil
		}
		return offset, fmt.Errorf("read log file: %w", err)
	}
}

func trimNewline(line string) string {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}
