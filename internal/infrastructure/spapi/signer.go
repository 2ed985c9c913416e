// Package spapi implements the signed transport and credential broker for
// the marketplace's Selling Partner inbound API.
package spapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	signingAlgorithm = "AWS4-HMAC-SHA256"
	requestSuffix    = "aws4_request"
	amzDateLayout    = "20060102T150405Z"
	shortDateLayout  = "20060102"

	headerAmzDate          = "x-amz-date"
	headerAmzSecurityToken = "x-amz-security-token"
	headerAmzContentSHA256 = "x-amz-content-sha256"
)

// Credentials are temporary delegated signing credentials obtained from the
// role-assumption exchange. They live for one orchestration run and are
// never persisted.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiration      time.Time
}

// Expired reports whether the credentials are past (or within a minute of)
// their expiration.
func (c Credentials) Expired() bool {
	if c.Expiration.IsZero() {
		return false
	}
	return time.Now().After(c.Expiration.Add(-time.Minute))
}

// Signer produces the request-signing authorization header: a canonical
// request hashed and signed with the derived date/region/service key chain.
type Signer struct {
	Region  string
	Service string
}

// Sign canonicalizes req and attaches the authorization header. The payload
// is the exact request body bytes (nil for body-less requests).
func (s *Signer) Sign(req *http.Request, creds Credentials, payload []byte, now time.Time) {
	amzDate := now.UTC().Format(amzDateLayout)
	shortDate := now.UTC().Format(shortDateLayout)
	payloadHash := hashHex(payload)

	req.Header.Set(headerAmzDate, amzDate)
	req.Header.Set(headerAmzContentSHA256, payloadHash)
	if creds.SessionToken != "" {
		req.Header.Set(headerAmzSecurityToken, creds.SessionToken)
	}

	canonicalHeaders, signedHeaders := canonicalizeHeaders(req)
	canonicalRequest := strings.Join([]string{
		req.Method,
		canonicalURI(req.URL),
		canonicalQuery(req.URL.Query()),
		canonicalHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	scope := strings.Join([]string{shortDate, s.Region, s.Service, requestSuffix}, "/")
	stringToSign := strings.Join([]string{
		signingAlgorithm,
		amzDate,
		scope,
		hashHex([]byte(canonicalRequest)),
	}, "\n")

	signature := hex.EncodeToString(hmacSHA256(s.signingKey(creds.SecretAccessKey, shortDate), []byte(stringToSign)))

	req.Header.Set("Authorization", signingAlgorithm+
		" Credential="+creds.AccessKeyID+"/"+scope+
		", SignedHeaders="+signedHeaders+
		", Signature="+signature)
}

// signingKey derives the per-date key chain: date, region, service, and
// finally the request key.
func (s *Signer) signingKey(secret, shortDate string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secret), []byte(shortDate))
	kRegion := hmacSHA256(kDate, []byte(s.Region))
	kService := hmacSHA256(kRegion, []byte(s.Service))
	return hmacSHA256(kService, []byte(requestSuffix))
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func canonicalURI(u *url.URL) string {
	if u.Path == "" {
		return "/"
	}
	// EscapedPath preserves the encoding the remote side will see.
	return u.EscapedPath()
}

// canonicalQuery sorts parameters by key then value and percent-encodes per
// RFC 3986 (spaces as %20, not +).
func canonicalQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		vs := append([]string(nil), values[k]...)
		sort.Strings(vs)
		for _, v := range vs {
			parts = append(parts, rfc3986Escape(k)+"="+rfc3986Escape(v))
		}
	}
	return strings.Join(parts, "&")
}

func rfc3986Escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// canonicalizeHeaders lower-cases and sorts the headers participating in the
// signature: host plus every x-amz-* header present on the request.
func canonicalizeHeaders(req *http.Request) (canonical string, signed string) {
	headers := map[string]string{"host": req.Host}
	if headers["host"] == "" {
		headers["host"] = req.URL.Host
	}
	for name, vals := range req.Header {
		lower := strings.ToLower(name)
		if strings.HasPrefix(lower, "x-amz-") {
			headers[lower] = strings.TrimSpace(strings.Join(vals, ","))
		}
	}

	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(headers[name])
		b.WriteByte('\n')
	}
	return b.String(), strings.Join(names, ";")
}
