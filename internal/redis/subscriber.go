package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cyber-shield/internal/logging"

	"github.com/go-redis/redis/v8"
)

const (
	minReceiveBackoff = 100 * time.Millisecond
	maxReceiveBackoff = 5 * time.Second
)

// nextBackoff 接收失败后的下一次等待时间，指数增长并封顶
func nextBackoff(d time.Duration) time.Duration {
	if d < minReceiveBackoff {
		return minReceiveBackoff
	}
	d *= 2
	if d > maxReceiveBackoff {
		return maxReceiveBackoff
	}
	return d
}

// Subscriber Redis订阅者，用于发布和监听威胁告警
type Subscriber struct {
	client    *redis.Client
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	handlers  map[string]func(string, string)
	isRunning bool
	done      chan struct{}
}

// NewSubscriber 创建Redis订阅者实例
func NewSubscriber(client *redis.Client) *Subscriber {
	ctx, cancel := context.WithCancel(context.Background())
	return &Subscriber{
		client:   client,
		ctx:      ctx,
		cancel:   cancel,
		handlers: make(map[string]func(string, string)),
	}
}

// AddHandler 添加事件处理函数
func (s *Subscriber) AddHandler(channel string, handler func(string, string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[channel] = handler
}

// Start 启动订阅者
func (s *Subscriber) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("subscriber is already running")
	}
	if len(s.handlers) == 0 {
		return fmt.Errorf("subscriber has no handlers")
	}

	channels := make([]string, 0, len(s.handlers))
	for channel := range s.handlers {
		channels = append(channels, channel)
	}

	pubsub := s.client.Subscribe(s.ctx, channels...)
	// 等待订阅确认，确保之后发布的消息不会丢失
	if _, err := pubsub.Receive(s.ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	s.isRunning = true
	s.done = make(chan struct{})
	go s.receive(pubsub, s.done)

	logging.DefaultLogger.Info("Redis subscriber started on %d channel(s)", len(channels))
	return nil
}

// receive 循环接收消息并分发给处理函数
func (s *Subscriber) receive(pubsub *redis.PubSub, done chan struct{}) {
	defer func() {
		if err := pubsub.Close(); err != nil {
			logging.DefaultLogger.Warn("Failed to close pubsub: %v", err)
		}
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		close(done)
		logging.DefaultLogger.Info("Redis subscriber stopped")
	}()

	var backoff time.Duration
	for {
		msg, err := pubsub.ReceiveMessage(s.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || s.ctx.Err() != nil {
				return
			}
			if strings.Contains(err.Error(), "closed") {
				return
			}
			backoff = nextBackoff(backoff)
			logging.DefaultLogger.Warn("Failed to receive message, retrying in %v: %v", backoff, err)
			timer := time.NewTimer(backoff)
			select {
			case <-s.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			continue
		}
		backoff = 0

		s.mu.RLock()
		handler, exists := s.handlers[msg.Channel]
		s.mu.RUnlock()
		if exists {
			handler(msg.Channel, msg.Payload)
		}
	}
}

// Stop 停止订阅者并等待接收循环退出
func (s *Subscriber) Stop() {
	s.cancel()

	s.mu.RLock()
	done := s.done
	s.mu.RUnlock()
	if done != nil {
		<-done
	}
}

// Publish 发布消息到指定频道
func (s *Subscriber) Publish(channel, message string) error {
	return s.client.Publish(s.ctx, channel, message).Err()
}

// IsRunning 检查订阅者是否正在运行
func (s *Subscriber) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
