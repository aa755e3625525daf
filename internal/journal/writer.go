package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"market-sim/internal/simulation"
)

// Writer 将每轮撮合结果以 JSONL 形式写入 zstd 压缩文件，一次运行对应一个文件。
type Writer struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

var _ simulation.Observer = (*Writer)(nil)

// PathFor 返回运行对应的日志文件路径。
func PathFor(dir, runID string) string {
	return filepath.Join(dir, runID+".jsonl.zst")
}

// Create 在 dir 下为 runID 创建日志文件。
func Create(dir, runID string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: 创建目录失败: %w", err)
	}
	path := PathFor(dir, runID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: 创建文件失败: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("journal: 初始化压缩器失败: %w", err)
	}
	return &Writer{
		path: path,
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 64*1024),
	}, nil
}

// Path 返回日志文件路径。
func (w *Writer) Path() string {
	return w.path
}

// OnRound 追加一条记录。
func (w *Writer) OnRound(_ context.Context, outcome simulation.RoundOutcome) error {
	b, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("journal: 序列化失败: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.w == nil {
		return fmt.Errorf("journal: %s 已关闭", w.path)
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Close 刷新缓冲并关闭文件，可重复调用。
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var err error
	if w.w != nil {
		err = w.w.Flush()
		w.w = nil
	}
	if w.enc != nil {
		if closeErr := w.enc.Close(); err == nil {
			err = closeErr
		}
		w.enc = nil
	}
	if w.f != nil {
		if closeErr := w.f.Close(); err == nil {
			err = closeErr
		}
		w.f = nil
	}
	return err
}
