package webserver

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/pem"
	"math/big"
	"net"
	"strings"
	"time"
)

const selfSignedValidity = 365 * 24 * time.Hour

// generateSelfSignedCert creates an ECDSA P-256 certificate for localhost,
// the loopback addresses and any extra hosts.
func generateSelfSignedCert(hosts ...string) (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, err
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"dtrack"},
			CommonName:   "dtrack-api",
		},
		NotBefore:             now.Add(-1 * time.Hour),
		NotAfter:              now.Add(selfSignedValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	template.DNSNames, template.IPAddresses = subjectAltNames(append([]string{"127.0.0.1", "localhost", "::1"}, hosts...))

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, err
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return tls.Certificate{}, err
	}

	cert, err := tls.X509KeyPair(
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}),
		pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}),
	)
	if err != nil {
		return tls.Certificate{}, err
	}
	cert.Leaf, _ = x509.ParseCertificate(certDER)
	return cert, nil
}

// subjectAltNames splits hosts into DNS names and IPs, dropping blanks and
// duplicates. Wildcard listen addresses are not valid SANs.
func subjectAltNames(hosts []string) ([]string, []net.IP) {
	var dns []string
	var ips []net.IP
	seen := map[string]struct{}{}
	for _, raw := range hosts {
		host := strings.TrimSpace(raw)
		if host == "" || host == "0.0.0.0" || host == "::" {
			continue
		}
		if ip := net.ParseIP(host); ip != nil {
			host = ip.String()
			if _, ok := seen[host]; ok {
				continue
			}
			seen[host] = struct{}{}
			ips = append(ips, ip)
			continue
		}
		if _, ok := seen[host]; ok {
			continue
		}
		seen[host] = struct{}{}
		dns = append(dns, host)
	}
	return dns, ips
}

// Fingerprint returns the SHA-256 fingerprint of the serving certificate,
// or "" when TLS is off or the server has not started.
func (srv *Server) Fingerprint() string {
	cfg := srv.httpServer.TLSConfig
	if cfg == nil || len(cfg.Certificates) == 0 || len(cfg.Certificates[0].Certificate) == 0 {
		return ""
	}
	sum := sha256.Sum256(cfg.Certificates[0].Certificate[0])
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
