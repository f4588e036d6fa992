package services

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeoIPService_PrivateAddress(t *testing.T) {
	s := newGeoIPService(func(ip net.IP) (*GeoLocation, error) {
		t.Fatalf("lookup should not be called for %s", ip)
		return nil, nil
	})

	for _, ip := range []string{"192.168.1.100", "10.0.0.9", "127.0.0.1", "::1", "172.16.5.4"} {
		location, err := s.GetLocation(ip)
		require.NoError(t, err)
		assert.Equal(t, "Local", location.CountryCode)
	}
}

func TestGeoIPService_InvalidAddress(t *testing.T) {
	s := newGeoIPService(nil)
	_, err := s.GetLocation("not-an-ip")
	assert.Error(t, err)
}

func TestGeoIPService_CachesAndDeduplicates(t *testing.T) {
	var calls atomic.Int32
	s := newGeoIPService(func(ip net.IP) (*GeoLocation, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return &GeoLocation{Country: "Australia", CountryCode: "AU"}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			location, err := s.GetLocation("203.45.67.89")
			assert.NoError(t, err)
			assert.Equal(t, "AU", location.CountryCode)
		}()
	}
	wg.Wait()

	location, err := s.GetLocation("203.45.67.89")
	require.NoError(t, err)
	assert.Equal(t, "Australia", location.Country)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGeoIPService_LookupError(t *testing.T) {
	s := newGeoIPService(func(ip net.IP) (*GeoLocation, error) {
		return nil, errors.New("not found")
	})
	_, err := s.GetLocation("8.8.8.8")
	assert.Error(t, err)
}

func TestNewGeoIPService_MissingDatabase(t *testing.T) {
	_, err := NewGeoIPService("/nonexistent/GeoLite2-Country.mmdb")
	assert.Error(t, err)
}
