package cert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSelfSigned(t *testing.T, dir, commonName string) Config {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: commonName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		DNSNames:     []string{commonName},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	config := Config{CertFile: filepath.Join(dir, "cert.pem"), KeyFile: filepath.Join(dir, "key.pem")}
	require.NoError(t, os.WriteFile(config.CertFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0600))
	require.NoError(t, os.WriteFile(config.KeyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0600))
	return config
}

func commonName(t *testing.T, m *Manager) string {
	t.Helper()
	cert, err := m.GetCertificate(nil)
	require.NoError(t, err)
	require.NotNil(t, cert)
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	return leaf.Subject.CommonName
}

func TestNewManager(t *testing.T) {
	_, err := NewManager(Config{})
	assert.Error(t, err)

	_, err = NewManager(Config{CertFile: "missing.pem", KeyFile: "missing.pem"})
	assert.Error(t, err)

	m, err := NewManager(writeSelfSigned(t, t.TempDir(), "first.local"))
	require.NoError(t, err)
	assert.Equal(t, "first.local", commonName(t, m))
	assert.Equal(t, uint16(tls.VersionTLS12), m.TLSConfig().MinVersion)
}

func TestManager_Reload(t *testing.T) {
	dir := t.TempDir()
	config := writeSelfSigned(t, dir, "first.local")
	m, err := NewManager(config)
	require.NoError(t, err)

	now := time.Now()
	m.now = func() time.Time { return now }

	writeSelfSigned(t, dir, "second.local")
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(config.CertFile, future, future))

	// 检查间隔内仍返回旧证书
	assert.Equal(t, "first.local", commonName(t, m))

	now = now.Add(2 * m.interval)
	assert.Equal(t, "second.local", commonName(t, m))
}

func TestManager_ReloadFailureKeepsCertificate(t *testing.T) {
	dir := t.TempDir()
	config := writeSelfSigned(t, dir, "first.local")
	m, err := NewManager(config)
	require.NoError(t, err)

	now := time.Now()
	m.now = func() time.Time { return now }
	require.NoError(t, os.WriteFile(config.CertFile, []byte("broken"), 0600))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(config.CertFile, future, future))

	now = now.Add(2 * m.interval)
	assert.Equal(t, "first.local", commonName(t, m))
}
