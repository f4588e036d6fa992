package detectors

import (
	"fmt"
	"net"
	"strings"

	"github.com/yl2chen/cidranger"
)

// DefaultKnownAddress 默认的可信登录地址
const DefaultKnownAddress = "192.168.1.100"

// KnownAddresses 可信地址集合，支持单个IP和CIDR网段
type KnownAddresses struct {
	ranger cidranger.Ranger
	size   int
}

// NewKnownAddresses 根据地址列表构建可信地址集合
func NewKnownAddresses(addrs []string) (*KnownAddresses, error) {
	ranger := cidranger.NewPCTrieRanger()
	for _, addr := range addrs {
		ipNet, err := ParseAddress(addr)
		if err != nil {
			return nil, err
		}
		if err := ranger.Insert(cidranger.NewBasicRangerEntry(*ipNet)); err != nil {
			return nil, fmt.Errorf("failed to insert known address %s: %w", addr, err)
		}
	}
	return &KnownAddresses{ranger: ranger, size: len(addrs)}, nil
}

// ParseAddress 将IP或CIDR解析为网段，单个IP视为主机网段
func ParseAddress(addr string) (*net.IPNet, error) {
	addr = strings.TrimSpace(addr)
	if strings.Contains(addr, "/") {
		_, ipNet, err := net.ParseCIDR(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR %q: %w", addr, err)
		}
		return ipNet, nil
	}

	ip := net.ParseIP(addr)
	if ip == nil {
		return nil, fmt.Errorf("invalid IP address %q", addr)
	}
	if v4 := ip.To4(); v4 != nil {
		return &net.IPNet{IP: v4, Mask: net.CIDRMask(32, 32)}, nil
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(128, 128)}, nil
}

// Contains 判断IP是否在可信集合中，无法解析的IP视为不可信
func (k *KnownAddresses) Contains(ip string) bool {
	if k == nil || k.size == 0 {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	ok, err := k.ranger.Contains(parsed)
	return err == nil && ok
}

// Len 返回配置的地址条目数
func (k *KnownAddresses) Len() int {
	if k == nil {
		return 0
	}
	return k.size
}
