package runlog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"ecbatch/internal/dispatch"
)

var headerPattern = regexp.MustCompile(`^\[(SUCCESS|FAILURE|SKIPPED)\] (.+)$`)

// Block is one parsed result block.
type Block struct {
	Status   dispatch.Status
	Category string
	Body     []string
}

// String renders the block the way it appears in the log.
func (b Block) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s\n%s\n", b.Status.Tag(), b.Category, rule)
	for _, line := range b.Body {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// TailOptions selects blocks from a result log.
type TailOptions struct {
	// Offset < 0 returns the last Limit blocks; otherwise blocks written at or
	// after Offset are returned.
	Offset int64
	Limit  int
	// Status keeps only blocks with this status when set.
	Status dispatch.Status
	Follow bool
	Wait   time.Duration
}

// TailResult carries the selected blocks and the offset to resume from.
type TailResult struct {
	Blocks []Block
	Offset int64
}

// Tail reads result blocks from path. A missing log yields no blocks.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	result := TailResult{Offset: opts.Offset}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			result.Offset = 0
			return result, nil
		}
		return result, fmt.Errorf("stat result log: %w", err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("result log path %q is a directory", path)
	}
	if opts.Wait < 0 {
		opts.Wait = 0
	}

	if opts.Offset < 0 {
		blocks, offset, err := readLastBlocks(path, opts.Limit, opts.Status)
		if err != nil {
			return result, err
		}
		result.Blocks = blocks
		result.Offset = offset
		if opts.Follow && opts.Wait > 0 && len(blocks) == 0 {
			return waitForBlocks(ctx, path, offset, opts)
		}
		return result, nil
	}

	offset := opts.Offset
	if offset > info.Size() {
		offset = info.Size()
	}
	blocks, newOffset, err := readForward(path, offset, opts.Status)
	if err != nil {
		return result, err
	}
	result.Blocks = blocks
	result.Offset = newOffset
	if opts.Follow && opts.Wait > 0 && len(blocks) == 0 {
		return waitForBlocks(ctx, path, newOffset, opts)
	}
	return result, nil
}

func readLastBlocks(path string, limit int, status dispatch.Status) ([]Block, int64, error) {
	if limit <= 0 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, 0, fmt.Errorf("stat result log: %w", err)
		}
		return nil, info.Size(), nil
	}

	ring := make([]Block, limit)
	count, idx := 0, 0
	offset, err := scanBlocks(path, 0, func(b Block) {
		if status != "" && b.Status != status {
			return
		}
		ring[idx] = b
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	})
	if err != nil {
		return nil, 0, err
	}

	blocks := make([]Block, count)
	if count == limit {
		for i := range count {
			blocks[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(blocks, ring[:count])
	}
	return blocks, offset, nil
}

func readForward(path string, offset int64, status dispatch.Status) ([]Block, int64, error) {
	var blocks []Block
	newOffset, err := scanBlocks(path, offset, func(b Block) {
		if status == "" || b.Status == status {
			blocks = append(blocks, b)
		}
	})
	return blocks, newOffset, err
}

// scanBlocks parses blocks starting at offset and returns the end offset.
// Blocks are appended whole, so a read that starts at a previous end offset
// never begins inside a block.
func scanBlocks(path string, offset int64, emit func(Block)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("open result log: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek result log: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var current *Block
	// A header only opens a block when it follows a blank line (or starts the
	// read) and is itself followed by the rule. Tool output echoing a tag
	// line stays in the body.
	var pending []string
	afterBlank := true
	flush := func() {
		if current == nil {
			return
		}
		for len(current.Body) > 0 && current.Body[len(current.Body)-1] == "" {
			current.Body = current.Body[:len(current.Body)-1]
		}
		emit(*current)
		current = nil
	}
	appendBody := func(lines ...string) {
		if current != nil {
			current.Body = append(current.Body, lines...)
		}
	}
	for scanner.Scan() {
		line := scanner.Text()
		if pending != nil {
			header := pending
			pending = nil
			if line == rule {
				flush()
				current = &Block{Status: dispatch.Status(strings.ToLower(header[1])), Category: header[2]}
				afterBlank = false
				continue
			}
			appendBody(header[0])
		}
		if afterBlank {
			if m := headerPattern.FindStringSubmatch(line); m != nil {
				pending = m
				afterBlank = false
				continue
			}
		}
		appendBody(line)
		afterBlank = line == ""
	}
	if pending != nil {
		appendBody(pending[0])
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read result log: %w", err)
	}
	flush()

	end, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("determine result log offset: %w", err)
	}
	return end, nil
}

func waitForBlocks(ctx context.Context, path string, offset int64, opts TailOptions) (TailResult, error) {
	deadline := time.Now().Add(opts.Wait)

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	result := TailResult{Offset: offset}
	for {
		blocks, newOffset, err := readForward(path, offset, opts.Status)
		if err != nil {
			return result, err
		}
		offset = newOffset
		result.Offset = newOffset
		if len(blocks) > 0 {
			result.Blocks = blocks
			return result, nil
		}
		if time.Now().After(deadline) {
			return result, nil
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}
