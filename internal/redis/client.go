package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cyber-shield/internal/logging"
	"cyber-shield/internal/threat/types"

	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix     = "cybershield"
	threatListKey = keyPrefix + ":threats"
	statsKey      = keyPrefix + ":stats"
)

// Client Redis客户端结构体
// 封装了Redis客户端的核心功能，提供了威胁记录相关的Redis操作方法
//
// 字段:
//   client: 底层的Redis客户端实例
//   ttl: 威胁记录的过期时间，0表示永不过期

type Client struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient 创建新的Redis客户端
// 支持两种格式的Redis URL:
// 1. 简单格式: localhost:6379
// 2. URL格式: redis://[password@]host:port/db
//
// 参数:
//
//	redisURL: Redis连接URL
//
// 返回值:
//
//	*Client: 创建的Redis客户端实例
//	error: 如果创建失败，返回错误信息
//
// 示例:
//
//	client, err := redis.NewClient("localhost:6379")
//	client, err := redis.NewClient("redis://password@localhost:6379/0")
func NewClient(redisURL string) (*Client, error) {
	opt, err := parseOptions(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)
	ctx := context.Background()

	// 测试连接
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{
		client: client,
	}, nil
}

// parseOptions 解析Redis连接地址
func parseOptions(redisURL string) (*redis.Options, error) {
	opt := &redis.Options{}

	// 如果redisURL是纯主机名或IP地址，使用默认端口
	if !strings.Contains(redisURL, "://") {
		opt.Addr = redisURL
		if !strings.Contains(opt.Addr, ":") {
			opt.Addr = fmt.Sprintf("%s:6379", opt.Addr)
		}
		return opt, nil
	}

	parsed, err := url.Parse(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if parsed.Scheme != "redis" && parsed.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported redis URL scheme: %s", parsed.Scheme)
	}

	opt.Addr = parsed.Host
	if !strings.Contains(opt.Addr, ":") {
		opt.Addr = fmt.Sprintf("%s:6379", opt.Addr)
	}

	// 解析密码，兼容 redis://password@host 的写法
	if parsed.User != nil {
		if password, ok := parsed.User.Password(); ok {
			opt.Username = parsed.User.Username()
			opt.Password = password
		} else {
			opt.Password = parsed.User.Username()
		}
	}

	// 解析数据库
	if parsed.Path != "" && parsed.Path != "/" {
		db, err := strconv.Atoi(strings.TrimPrefix(parsed.Path, "/"))
		if err != nil {
			return nil, fmt.Errorf("invalid redis database %q: %w", parsed.Path, err)
		}
		opt.DB = db
	}

	return opt, nil
}

// SetTTL 设置威胁记录的过期时间
func (c *Client) SetTTL(ttl time.Duration) {
	c.ttl = ttl
}

// GetRawClient 获取原始Redis客户端实例
func (c *Client) GetRawClient() *redis.Client {
	return c.client
}

// Close 关闭Redis连接
func (c *Client) Close() error {
	return c.client.Close()
}

// threatKey 威胁记录的存储键
func threatKey(id string) string {
	return fmt.Sprintf("%s:threat:%s", keyPrefix, id)
}

// === 威胁记录 ===

// SaveThreat 保存分析结果，并维护最近记录列表和统计计数
func (c *Client) SaveThreat(ctx context.Context, result *types.AnalysisResult, maxLen int) error {
	if result == nil || result.Threat == nil {
		return fmt.Errorf("cannot save empty analysis result")
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal threat %s: %w", result.Threat.ID, err)
	}

	t := result.Threat
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, threatKey(t.ID), data, c.ttl)
		pipe.LPush(ctx, threatListKey, t.ID)
		if maxLen > 0 {
			pipe.LTrim(ctx, threatListKey, 0, int64(maxLen-1))
		}
		for field, delta := range statsDelta(t) {
			pipe.HIncrBy(ctx, statsKey, field, delta)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save threat %s: %w", t.ID, err)
	}
	return nil
}

// GetThreat 获取单条威胁记录，不存在时返回 (nil, nil)
func (c *Client) GetThreat(ctx context.Context, id string) (*types.AnalysisResult, error) {
	data, err := c.client.Get(ctx, threatKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get threat %s: %w", id, err)
	}

	var result types.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode threat %s: %w", id, err)
	}
	return &result, nil
}

// ListThreats 获取最近的威胁记录，按时间倒序
func (c *Client) ListThreats(ctx context.Context, limit int) ([]*types.AnalysisResult, error) {
	if limit <= 0 {
		return []*types.AnalysisResult{}, nil
	}

	ids, err := c.client.LRange(ctx, threatListKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list threats: %w", err)
	}
	if len(ids) == 0 {
		return []*types.AnalysisResult{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = threatKey(id)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load threats: %w", err)
	}

	results := make([]*types.AnalysisResult, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue // 记录已过期
		}
		var result types.AnalysisResult
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			logging.DefaultLogger.Warn("Failed to decode threat %s: %v", ids[i], err)
			continue
		}
		results = append(results, &result)
	}
	return results, nil
}

// GetThreatStats 获取威胁统计计数
func (c *Client) GetThreatStats(ctx context.Context) (map[string]int64, error) {
	values, err := c.client.HGetAll(ctx, statsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get threat stats: %w", err)
	}
	return parseStats(values), nil
}

// statsDelta 单条威胁对统计计数的增量
func statsDelta(t *types.Threat) map[string]int64 {
	return map[string]int64{
		"total":                         1,
		"risk_sum":                      int64(t.RiskScore),
		"severity:" + string(t.Severity): 1,
		"type:" + string(t.Type):         1,
	}
}

// parseStats 将Redis哈希值转换为整数计数
func parseStats(values map[string]string) map[string]int64 {
	stats := make(map[string]int64, len(values))
	for k, v := range values {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			logging.DefaultLogger.Warn("Failed to parse %s value %s to int: %v", k, v, err)
			continue
		}
		stats[k] = n
	}
	return stats
}

// === 会话管理 ===

// RevokeToken 将令牌加入黑名单直至过期
func (c *Client) RevokeToken(ctx context.Context, tokenID string, expiration time.Duration) error {
	if expiration <= 0 {
		return nil
	}
	key := fmt.Sprintf("%s:revoked:%s", keyPrefix, tokenID)
	return c.client.Set(ctx, key, time.Now().Unix(), expiration).Err()
}

// IsTokenRevoked 检查令牌是否已注销
func (c *Client) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	key := fmt.Sprintf("%s:revoked:%s", keyPrefix, tokenID)
	val, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return val > 0, nil
}
