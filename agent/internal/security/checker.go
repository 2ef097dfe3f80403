package security

import (
	"context"
	"crypto/tls"
	"math"
	"net"
	"net/url"
	"time"
)

// Certificate states.
const (
	CertValid       = "valid"
	CertExpiring    = "expiring"
	CertExpired     = "expired"
	CertUnreachable = "unreachable"
)

// ExpiringWithin is how close to NotAfter a certificate counts as expiring.
const ExpiringWithin = 30 * 24 * time.Hour

const dialTimeout = 10 * time.Second

// CertStatus describes the leaf certificate served by an HTTPS endpoint.
type CertStatus struct {
	Endpoint string    `json:"endpoint"`
	Status   string    `json:"status"`
	Issuer   string    `json:"issuer,omitempty"`
	Subject  string    `json:"subject,omitempty"`
	NotAfter time.Time `json:"not_after,omitempty"`
	DaysLeft int       `json:"days_left"`
	Error    string    `json:"error,omitempty"`
}

// Check dials the TLS endpoint and returns a CertStatus describing the leaf
// certificate. It returns nil for endpoints that are not https URLs.
func Check(ctx context.Context, endpoint string, insecureSkipVerify bool) *CertStatus {
	return checkAt(ctx, endpoint, insecureSkipVerify, time.Now())
}

func checkAt(ctx context.Context, endpoint string, insecureSkipVerify bool, now time.Time) *CertStatus {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme != "https" {
		return nil
	}

	cs := &CertStatus{Endpoint: endpoint}

	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "443")
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{},
		Config: &tls.Config{
			ServerName:         u.Hostname(),
			InsecureSkipVerify: insecureSkipVerify, //nolint:gosec // user-configured
		},
	}

	netConn, err := dialer.DialContext(dialCtx, "tcp", host)
	if err != nil {
		cs.Status = CertUnreachable
		cs.Error = err.Error()
		return cs
	}
	conn := netConn.(*tls.Conn)
	defer conn.Close()

	peerCerts := conn.ConnectionState().PeerCertificates
	if len(peerCerts) == 0 {
		cs.Status = CertUnreachable
		return cs
	}

	leaf := peerCerts[0]
	left := leaf.NotAfter.Sub(now)

	cs.NotAfter = leaf.NotAfter.UTC()
	cs.Issuer = leaf.Issuer.CommonName
	cs.Subject = leaf.Subject.CommonName
	cs.DaysLeft = int(math.Floor(left.Hours() / 24))
	cs.Status = statusFor(left)
	return cs
}

func statusFor(left time.Duration) string {
	switch {
	case left <= 0:
		return CertExpired
	case left <= ExpiringWithin:
		return CertExpiring
	default:
		return CertValid
	}
}
