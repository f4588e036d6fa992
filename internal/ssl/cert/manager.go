package cert

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// Config 证书配置
type Config struct {
	CertFile string
	KeyFile  string
}

// Manager 证书管理器，证书文件更新后在下次握手时重新加载
type Manager struct {
	config   Config
	mutex    sync.RWMutex
	cert     *tls.Certificate
	modTime  time.Time
	checked  time.Time
	interval time.Duration
	now      func() time.Time
}

// NewManager 创建证书管理器并加载初始证书
func NewManager(config Config) (*Manager, error) {
	if config.CertFile == "" || config.KeyFile == "" {
		return nil, errors.New("certificate and key files are required")
	}

	m := &Manager{
		config:   config,
		interval: time.Minute,
		now:      time.Now,
	}
	if err := m.reload(); err != nil {
		return nil, err
	}
	return m, nil
}

// TLSConfig 返回使用该管理器提供证书的TLS配置
func (m *Manager) TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: m.GetCertificate,
	}
}

// GetCertificate 获取当前证书，检查间隔到期时按文件修改时间重新加载
func (m *Manager) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	m.mutex.RLock()
	cert := m.cert
	due := m.now().Sub(m.checked) >= m.interval
	m.mutex.RUnlock()

	if due {
		if err := m.reload(); err != nil {
			// 加载失败时继续使用旧证书
			fmt.Fprintf(os.Stderr, "Warning: failed to reload certificate: %v\n", err)
		}
		m.mutex.RLock()
		cert = m.cert
		m.mutex.RUnlock()
	}
	return cert, nil
}

// reload 证书文件有变化时重新加载
func (m *Manager) reload() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.checked = m.now()
	modTime, err := latestModTime(m.config.CertFile, m.config.KeyFile)
	if err != nil {
		return err
	}
	if m.cert != nil && !modTime.After(m.modTime) {
		return nil
	}

	cert, err := tls.LoadX509KeyPair(m.config.CertFile, m.config.KeyFile)
	if err != nil {
		return fmt.Errorf("failed to load certificate: %w", err)
	}
	m.cert = &cert
	m.modTime = modTime
	return nil
}

func latestModTime(paths ...string) (time.Time, error) {
	var latest time.Time
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return time.Time{}, err
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	return latest, nil
}
