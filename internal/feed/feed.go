package feed

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"cyber-shield/internal/threat/types"
)

// Sample 返回内置的样例日志，与仪表盘的演示数据一致
func Sample() []types.LogEntry {
	return []types.LogEntry{
		{
			"action":    "login_failed",
			"ip":        "203.45.67.89",
			"user":      "admin",
			"timestamp": time.Now().Add(-30 * time.Minute).UTC().Format(time.RFC3339),
		},
		{
			"action":  "file_access",
			"details": "Accessed confidential/reports.pdf",
			"user":    "john.doe",
			"ip":      "192.168.1.105",
		},
		{
			"action":      "network_traffic",
			"size":        5000000,
			"destination": "unknown.server.com",
		},
		{
			"action":  "email_received",
			"sender":  "unknown@malicious.com",
			"subject": "URGENT: Account Verification Required",
			"links":   []interface{}{"http://fake-bank.com/login"},
		},
	}
}

// Load 从文件读取日志，支持JSON数组和每行一个JSON对象两种格式
func Load(path string) ([]types.LogEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feed %s: %w", path, err)
	}
	defer file.Close()

	entries, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed %s: %w", path, err)
	}
	return entries, nil
}

// Decode 解码日志流
func Decode(r io.Reader) ([]types.LogEntry, error) {
	reader := bufio.NewReader(r)
	first, err := peekNonSpace(reader)
	if errors.Is(err, io.EOF) {
		return []types.LogEntry{}, nil
	}
	if err != nil {
		return nil, err
	}

	decoder := json.NewDecoder(reader)
	decoder.UseNumber()

	if first == '[' {
		var entries []types.LogEntry
		if err := decoder.Decode(&entries); err != nil {
			return nil, fmt.Errorf("invalid JSON array: %w", err)
		}
		return compact(entries), nil
	}

	entries := make([]types.LogEntry, 0)
	for n := 1; ; n++ {
		var entry types.LogEntry
		err := decoder.Decode(&entry)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid entry %d: %w", n, err)
		}
		if entry != nil {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// peekNonSpace 跳过前导空白并返回第一个有效字符
func peekNonSpace(r *bufio.Reader) (byte, error) {
	for {
		b, err := r.Peek(1)
		if err != nil {
			return 0, err
		}
		if !bytes.ContainsAny(b, " \t\r\n") {
			return b[0], nil
		}
		if _, err := r.ReadByte(); err != nil {
			return 0, err
		}
	}
}

// compact 去除数组中的 null 条目
func compact(entries []types.LogEntry) []types.LogEntry {
	out := entries[:0]
	for _, entry := range entries {
		if entry != nil {
			out = append(out, entry)
		}
	}
	return out
}
