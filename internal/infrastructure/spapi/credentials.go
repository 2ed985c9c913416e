package spapi

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Broker exchanges long-lived material for the short-lived credentials one
// orchestration run needs: delegated signing keys via role assumption, and
// a bearer access token via the OAuth refresh-token grant. Results are
// cached on the Session, never persisted.
type Broker struct {
	cfg        *Config
	httpClient *http.Client
}

// NewBroker creates a credential broker for the given configuration.
func NewBroker(cfg *Config, httpClient *http.Client) *Broker {
	return &Broker{cfg: cfg, httpClient: httpClient}
}

// Session carries the per-run credential cache plus the tenant's seller
// identity.
type Session struct {
	Credentials Credentials
	AccessToken AccessToken
	SellerID    string
	Marketplace string
}

// Expired reports whether either credential leg needs re-exchanging. A
// session is only reusable while both the signing keys and the bearer
// token are still live.
func (s *Session) Expired() bool {
	return s.Credentials.Expired() || s.AccessToken.Expired()
}

type assumeRoleResponse struct {
	XMLName xml.Name `xml:"AssumeRoleResponse"`
	Result  struct {
		Credentials struct {
			AccessKeyID     string `xml:"AccessKeyId"`
			SecretAccessKey string `xml:"SecretAccessKey"`
			SessionToken    string `xml:"SessionToken"`
			Expiration      string `xml:"Expiration"`
		} `xml:"Credentials"`
	} `xml:"AssumeRoleResult"`
}

// AssumeRole performs the role-assumption exchange against the identity
// endpoint and parses the XML response for the temporary key material.
func (b *Broker) AssumeRole(ctx context.Context) (Credentials, error) {
	form := url.Values{}
	form.Set("Action", "AssumeRole")
	form.Set("Version", "2011-06-15")
	form.Set("RoleArn", b.cfg.RoleARN)
	form.Set("RoleSessionName", b.cfg.RoleSessionName)
	form.Set("DurationSeconds", "3600")

	body := form.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.STSEndpoint, strings.NewReader(body))
	if err != nil {
		return Credentials{}, fmt.Errorf("spapi: failed to create assume-role request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	signer := &Signer{Region: b.cfg.Region, Service: "sts"}
	signer.Sign(req, Credentials{
		AccessKeyID:     b.cfg.AccessKeyID,
		SecretAccessKey: b.cfg.SecretAccessKey,
	}, []byte(body), time.Now())

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return Credentials{}, fmt.Errorf("spapi: assume-role request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Credentials{}, fmt.Errorf("spapi: failed to read assume-role response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Credentials{}, fmt.Errorf("spapi: assume-role returned HTTP %d: %s", resp.StatusCode, truncate(raw, 256))
	}

	var parsed assumeRoleResponse
	if err := xml.Unmarshal(raw, &parsed); err != nil {
		return Credentials{}, fmt.Errorf("spapi: failed to parse assume-role response: %w", err)
	}
	c := parsed.Result.Credentials
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		return Credentials{}, fmt.Errorf("spapi: assume-role response missing credentials")
	}

	creds := Credentials{
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		SessionToken:    c.SessionToken,
	}
	if c.Expiration != "" {
		if exp, err := time.Parse(time.RFC3339, c.Expiration); err == nil {
			creds.Expiration = exp
		}
	}
	return creds, nil
}

type lwaTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// AccessToken is a minted OAuth access token with its expiry instant.
type AccessToken struct {
	Value      string
	Expiration time.Time
}

// Expired reports whether the token is within a minute of its expiry.
// Tokens without a reported lifetime never expire here.
func (t AccessToken) Expired() bool {
	if t.Expiration.IsZero() {
		return false
	}
	return time.Now().After(t.Expiration.Add(-time.Minute))
}

// AccessToken performs the OAuth refresh-token grant against the
// marketplace identity endpoint using the tenant's stored refresh token.
func (b *Broker) AccessToken(ctx context.Context, refreshToken string) (AccessToken, error) {
	if refreshToken == "" {
		return AccessToken{}, fmt.Errorf("spapi: refresh token is empty")
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", b.cfg.ClientID)
	form.Set("client_secret", b.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.LWAEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return AccessToken{}, fmt.Errorf("spapi: failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return AccessToken{}, fmt.Errorf("spapi: token request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return AccessToken{}, fmt.Errorf("spapi: failed to read token response: %w", err)
	}

	var parsed lwaTokenResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return AccessToken{}, fmt.Errorf("spapi: failed to parse token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || parsed.AccessToken == "" {
		return AccessToken{}, fmt.Errorf("spapi: token grant returned HTTP %d: %s %s", resp.StatusCode, parsed.Error, parsed.ErrorDesc)
	}
	token := AccessToken{Value: parsed.AccessToken}
	if parsed.ExpiresIn > 0 {
		token.Expiration = time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	}
	return token, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
