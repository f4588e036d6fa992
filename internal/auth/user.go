package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// minPasswordLength 密码最小长度
const minPasswordLength = 6

var (
	// 错误定义
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserExists         = errors.New("system already initialized, only one user is allowed")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", minPasswordLength)
)

// User 用户信息
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"password"` // 存储加密后的密码
}

// UserManager 用户管理器，系统只允许一个管理员用户
type UserManager struct {
	mu       sync.RWMutex
	users    map[string]*User
	dataPath string
}

// NewUserManager 创建用户管理器，从数据目录加载用户数据
func NewUserManager(dataDir string) (*UserManager, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	manager := &UserManager{
		users:    make(map[string]*User),
		dataPath: filepath.Join(dataDir, "users.json"),
	}
	if err := manager.loadUsers(); err != nil {
		return nil, err
	}
	return manager, nil
}

// CreateUser 创建用户
func (m *UserManager) CreateUser(username, password string) (*User, error) {
	if username == "" {
		return nil, ErrInvalidCredentials
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.users) > 0 {
		return nil, ErrUserExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:       uuid.New().String(),
		Username: username,
		Password: string(hashedPassword),
	}
	m.users[user.ID] = user

	if err := m.saveUsers(); err != nil {
		delete(m.users, user.ID)
		return nil, err
	}
	return user, nil
}

// GetUserByUsername 通过用户名获取用户
func (m *UserManager) GetUserByUsername(username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, ErrUserNotFound
}

// AuthenticateUser 验证用户身份
func (m *UserManager) AuthenticateUser(username, password string) (*User, error) {
	user, err := m.GetUserByUsername(username)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ResetPassword 重置用户密码
func (m *UserManager) ResetPassword(username, password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, user := range m.users {
		if user.Username != username {
			continue
		}
		previous := user.Password
		user.Password = string(hashedPassword)
		if err := m.saveUsers(); err != nil {
			user.Password = previous
			return err
		}
		return nil
	}
	return ErrUserNotFound
}

// IsFirstRun 检查是否是首次运行（没有用户）
func (m *UserManager) IsFirstRun() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users) == 0
}

// loadUsers 加载用户数据，文件不存在或为空时视为首次运行
func (m *UserManager) loadUsers() error {
	content, err := os.ReadFile(m.dataPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read users file: %w", err)
	}
	if len(content) == 0 {
		return nil
	}

	var users []*User
	if err := json.Unmarshal(content, &users); err != nil {
		return fmt.Errorf("failed to parse users file: %w", err)
	}
	for _, user := range users {
		m.users[user.ID] = user
	}
	return nil
}

// saveUsers 保存用户数据
func (m *UserManager) saveUsers() error {
	users := make([]*User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}

	content, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.dataPath, content, 0600)
}
