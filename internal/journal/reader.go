package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"

	"market-sim/internal/simulation"
)

// Read 读取整份日志，用于回放与核对。
func Read(path string) ([]simulation.RoundOutcome, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("journal: 打开文件失败: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("journal: 初始化解压器失败: %w", err)
	}
	defer dec.Close()

	var outcomes []simulation.RoundOutcome
	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var o simulation.RoundOutcome
		if err := json.Unmarshal(scanner.Bytes(), &o); err != nil {
			return nil, fmt.Errorf("journal: 第 %d 行解析失败: %w", len(outcomes)+1, err)
		}
		outcomes = append(outcomes, o)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("journal: 读取失败: %w", err)
	}
	return outcomes, nil
}
