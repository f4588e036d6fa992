package services

import (
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/oschwald/geoip2-golang"
	"golang.org/x/sync/singleflight"

	"cyber-shield/internal/logging"
)

// maxCachedLocations 缓存的地理位置条数上限
const maxCachedLocations = 10000

// GeoLocation 地理位置信息
type GeoLocation struct {
	Country     string  `json:"country"`             // 国家名称
	CountryCode string  `json:"country_code"`        // 国家代码 (ISO 3166-1 alpha-2)
	City        string  `json:"city,omitempty"`      // 城市
	Latitude    float64 `json:"latitude,omitempty"`  // 纬度
	Longitude   float64 `json:"longitude,omitempty"` // 经度
}

// lookupFunc 查询单个公网IP
type lookupFunc func(ip net.IP) (*GeoLocation, error)

// GeoIPService IP地理位置解析服务，基于本地GeoLite2数据库
type GeoIPService struct {
	reader *geoip2.Reader
	lookup lookupFunc
	group  singleflight.Group
	mu     sync.RWMutex
	cache  map[string]*GeoLocation
}

// NewGeoIPService 打开GeoLite2数据库并创建GeoIP服务
func NewGeoIPService(databasePath string) (*GeoIPService, error) {
	reader, err := geoip2.Open(databasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database %s: %w", databasePath, err)
	}

	s := newGeoIPService(nil)
	s.reader = reader
	if strings.Contains(reader.Metadata().DatabaseType, "City") {
		s.lookup = s.lookupCity
	} else {
		s.lookup = s.lookupCountry
	}
	return s, nil
}

func newGeoIPService(lookup lookupFunc) *GeoIPService {
	return &GeoIPService{
		lookup: lookup,
		cache:  make(map[string]*GeoLocation),
	}
}

// Close 关闭数据库
func (s *GeoIPService) Close() error {
	if s.reader == nil {
		return nil
	}
	return s.reader.Close()
}

// GetLocation 解析IP地理位置，相同IP的并发查询只访问一次数据库
func (s *GeoIPService) GetLocation(ip string) (*GeoLocation, error) {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return nil, fmt.Errorf("invalid ip address: %q", ip)
	}

	// 如果是内网IP，直接返回
	if isPrivateIP(parsed) {
		return &GeoLocation{
			Country:     "Local",
			CountryCode: "Local",
			City:        "Local",
		}, nil
	}

	key := parsed.String()
	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		s.mu.RLock()
		cached, ok := s.cache[key]
		s.mu.RUnlock()
		if ok {
			return cached, nil
		}

		location, err := s.lookup(parsed)
		if err != nil {
			return nil, err
		}
		s.store(key, location)
		return location, nil
	})
	if err != nil {
		logging.DefaultLogger.Warn("GeoIP lookup failed for IP %s: %v", ip, err)
		return nil, err
	}
	return v.(*GeoLocation), nil
}

func (s *GeoIPService) store(key string, location *GeoLocation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cache) >= maxCachedLocations {
		s.cache = make(map[string]*GeoLocation)
	}
	s.cache[key] = location
}

// lookupCountry 查询国家数据库
func (s *GeoIPService) lookupCountry(ip net.IP) (*GeoLocation, error) {
	record, err := s.reader.Country(ip)
	if err != nil {
		return nil, err
	}
	return &GeoLocation{
		Country:     record.Country.Names["en"],
		CountryCode: record.Country.IsoCode,
	}, nil
}

// lookupCity 查询城市数据库
func (s *GeoIPService) lookupCity(ip net.IP) (*GeoLocation, error) {
	record, err := s.reader.City(ip)
	if err != nil {
		return nil, err
	}
	return &GeoLocation{
		Country:     record.Country.Names["en"],
		CountryCode: record.Country.IsoCode,
		City:        record.City.Names["en"],
		Latitude:    record.Location.Latitude,
		Longitude:   record.Location.Longitude,
	}, nil
}

// isPrivateIP 判断是否为内网或本机地址
func isPrivateIP(ip net.IP) bool {
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
