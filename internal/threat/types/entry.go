package types

import (
	"encoding/json"
	"strconv"
	"strings"
)

// LogEntry 待分析的日志条目，字段均为可选，不校验结构
type LogEntry map[string]interface{}

// String 获取字符串字段，字段缺失或类型不符时返回false
func (e LogEntry) String(key string) (string, bool) {
	v, ok := e[key].(string)
	return v, ok
}

// Contains 判断字段是否包含substr
// 字符串字段做子串匹配，列表字段做元素相等匹配
func (e LogEntry) Contains(key, substr string) bool {
	switch v := e[key].(type) {
	case string:
		return strings.Contains(v, substr)
	case []string:
		for _, item := range v {
			if item == substr {
				return true
			}
		}
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && s == substr {
				return true
			}
		}
	}
	return false
}

// Number 获取数值字段，支持数字字符串
func (e LogEntry) Number(key string) (float64, bool) {
	switch v := e[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// Len 获取字段长度，仅对字符串和列表有效，其余情况返回0
func (e LogEntry) Len(key string) int {
	switch v := e[key].(type) {
	case string:
		return len(v)
	case []string:
		return len(v)
	case []interface{}:
		return len(v)
	}
	return 0
}
