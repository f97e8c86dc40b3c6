package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// DefaultChunkSize 文件分块读取大小（1MB）
const DefaultChunkSize = 1024 * 1024

// FileProgress 文件读取进度
type FileProgress struct {
	Loaded     int64
	Total      int64
	Percentage int
}

// HashDocument 流式计算文档的 SHA-256（十六进制小写）
//
// 用于在提交核验前由本地文件得到 documentHash，onProgress 可为 nil
func HashDocument(filePath string, onProgress func(FileProgress)) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open file failed: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("get file info failed: %w", err)
	}
	total := fileInfo.Size()

	h := sha256.New()
	buffer := make([]byte, DefaultChunkSize)
	var loaded int64
	for {
		n, err := file.Read(buffer)
		if n > 0 {
			h.Write(buffer[:n])
			loaded += int64(n)
			if onProgress != nil && total > 0 {
				onProgress(FileProgress{
					Loaded:     loaded,
					Total:      total,
					Percentage: int((loaded * 100) / total),
				})
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read file failed: %w", err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
