package certs

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
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

// writeTestCA generates a CA key pair on disk and returns the paths plus
// the parsed certificate.
func writeTestCA(t *testing.T, notAfter time.Time) (string, string, *x509.Certificate) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Hearth Lab Root CA"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	caCert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	dir := t.TempDir()
	certPath := filepath.Join(dir, "ca.crt")
	keyPath := filepath.Join(dir, "ca.key")

	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certPath, keyPath, caCert
}

func TestCustomCAIssue(t *testing.T) {
	certPath, keyPath, caCert := writeTestCA(t, time.Now().Add(10*365*24*time.Hour))
	issuer := &CustomCAIssuer{name: "lab-ca", certPath: certPath, keyPath: keyPath}

	bundle, err := issuer.Issue(context.Background(), []string{"git.lab.example.com"})
	require.NoError(t, err)
	assert.Equal(t, "lab-ca", bundle.Issuer)

	leaf, err := bundle.Leaf()
	require.NoError(t, err)
	assert.Equal(t, "git.lab.example.com", leaf.Subject.CommonName)
	assert.WithinDuration(t, time.Now().Add(customCAValidity), leaf.NotAfter, time.Minute)

	pool := x509.NewCertPool()
	pool.AddCert(caCert)
	_, err = leaf.Verify(x509.VerifyOptions{Roots: pool, DNSName: "git.lab.example.com"})
	require.NoError(t, err, "leaf should chain to the configured CA")

	_, err = tls.X509KeyPair(bundle.CertPEM, bundle.KeyPEM)
	require.NoError(t, err)
}

// The bundle ships the CA certificate after the leaf so clients can be
// pointed at the full chain.
func TestCustomCABundleIncludesChain(t *testing.T) {
	certPath, keyPath, caCert := writeTestCA(t, time.Now().Add(10*365*24*time.Hour))
	issuer := &CustomCAIssuer{name: "lab-ca", certPath: certPath, keyPath: keyPath}

	bundle, err := issuer.Issue(context.Background(), []string{"git.lab.example.com"})
	require.NoError(t, err)

	var certs []*x509.Certificate
	rest := bundle.CertPEM
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		require.NoError(t, err)
		certs = append(certs, cert)
	}
	require.Len(t, certs, 2)
	assert.Equal(t, "git.lab.example.com", certs[0].Subject.CommonName)
	assert.Equal(t, caCert.Subject.CommonName, certs[1].Subject.CommonName)
}

func TestCustomCAExpiryCappedAtCA(t *testing.T) {
	caNotAfter := time.Now().Add(24 * time.Hour)
	certPath, keyPath, caCert := writeTestCA(t, caNotAfter)
	issuer := &CustomCAIssuer{name: "lab-ca", certPath: certPath, keyPath: keyPath}

	bundle, err := issuer.Issue(context.Background(), []string{"git.lab.example.com"})
	require.NoError(t, err)

	leaf, err := bundle.Leaf()
	require.NoError(t, err)
	assert.True(t, leaf.NotAfter.Equal(caCert.NotAfter),
		"leaf must not outlive its CA: leaf %s, ca %s", leaf.NotAfter, caCert.NotAfter)
}

func TestCustomCARejectsNonCA(t *testing.T) {
	// A server certificate without IsCA must be refused as a signer.
	local := &SelfSignedIssuer{name: "local"}
	bundle, err := local.Issue(context.Background(), []string{"not-a-ca.lab.example.com"})
	require.NoError(t, err)

	dir := t.TempDir()
	certPath := filepath.Join(dir, "ca.crt")
	keyPath := filepath.Join(dir, "ca.key")
	require.NoError(t, os.WriteFile(certPath, bundle.CertPEM, 0o600))
	require.NoError(t, os.WriteFile(keyPath, bundle.KeyPEM, 0o600))

	issuer := &CustomCAIssuer{name: "lab-ca", certPath: certPath, keyPath: keyPath}
	_, err = issuer.Issue(context.Background(), []string{"git.lab.example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a CA certificate")
}

func TestCustomCAMissingFiles(t *testing.T) {
	issuer := &CustomCAIssuer{
		name:     "lab-ca",
		certPath: "/nonexistent/ca.crt",
		keyPath:  "/nonexistent/ca.key",
	}

	_, err := issuer.Issue(context.Background(), []string{"git.lab.example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read CA certificate")
}

func TestParsePrivateKeyFormats(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pkcs8, err := x509.MarshalPKCS8PrivateKey(ecKey)
	require.NoError(t, err)
	ec, err := x509.MarshalECPrivateKey(ecKey)
	require.NoError(t, err)
	pkcs1 := x509.MarshalPKCS1PrivateKey(rsaKey)

	for name, der := range map[string][]byte{"pkcs8": pkcs8, "ec": ec, "pkcs1": pkcs1} {
		signer, err := parsePrivateKey(der)
		require.NoError(t, err, "format %s", name)
		require.NotNil(t, signer)
	}

	_, err = parsePrivateKey([]byte("garbage"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not PKCS#8, EC, or PKCS#1")
}
