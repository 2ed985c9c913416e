package spapi

import (
	"errors"
	"time"
)

// Config holds connection and signing settings for the Selling Partner API.
type Config struct {
	// Endpoint is the API base URL, e.g. https://sellingpartnerapi-na.amazon.com
	Endpoint string
	// Region is the signing region matching the endpoint.
	Region string
	// STSEndpoint is the identity endpoint used for the role-assumption
	// exchange.
	STSEndpoint string
	// LWAEndpoint is the marketplace identity endpoint used for the OAuth
	// refresh-token grant.
	LWAEndpoint string
	// RoleARN is the delegated role assumed for signing.
	RoleARN string
	// AccessKeyID / SecretAccessKey are the long-lived keys allowed to
	// assume the role.
	AccessKeyID     string
	SecretAccessKey string
	// ClientID / ClientSecret identify the application for the OAuth grant.
	ClientID     string
	ClientSecret string
	// RoleSessionName tags the assumed-role session.
	RoleSessionName string

	TimeoutSeconds int

	// Poll settings for asynchronous remote operations.
	MaxPollAttempts int
	PollBaseDelay   time.Duration
	PollMaxDelay    time.Duration

	// Group item reads: bounded linear retry.
	GroupReadAttempts int
	GroupReadDelay    time.Duration

	// Re-list retries while the platform populates freshly generated
	// packing options.
	ListRetryAttempts int
	ListRetryDelay    time.Duration
}

// Errors for SP-API configuration.
var (
	ErrConfigMissingEndpoint = errors.New("spapi: endpoint is required")
	ErrConfigMissingRegion   = errors.New("spapi: region is required")
	ErrConfigMissingRole     = errors.New("spapi: role ARN is required")
	ErrConfigMissingKeys     = errors.New("spapi: access key and secret are required")
	ErrConfigMissingClient   = errors.New("spapi: OAuth client id and secret are required")
)

// Validate checks required fields and applies defaults.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return ErrConfigMissingEndpoint
	}
	if c.Region == "" {
		return ErrConfigMissingRegion
	}
	if c.RoleARN == "" {
		return ErrConfigMissingRole
	}
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		return ErrConfigMissingKeys
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return ErrConfigMissingClient
	}
	if c.STSEndpoint == "" {
		c.STSEndpoint = "https://sts.amazonaws.com"
	}
	if c.LWAEndpoint == "" {
		c.LWAEndpoint = "https://api.amazon.com/auth/o2/token"
	}
	if c.RoleSessionName == "" {
		c.RoleSessionName = "prepflow-inbound"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	if c.MaxPollAttempts <= 0 {
		c.MaxPollAttempts = 10
	}
	if c.PollBaseDelay <= 0 {
		c.PollBaseDelay = 350 * time.Millisecond
	}
	if c.PollMaxDelay <= 0 {
		c.PollMaxDelay = 3200 * time.Millisecond
	}
	if c.GroupReadAttempts <= 0 {
		c.GroupReadAttempts = 5
	}
	if c.GroupReadDelay <= 0 {
		c.GroupReadDelay = 300 * time.Millisecond
	}
	if c.ListRetryAttempts <= 0 {
		c.ListRetryAttempts = 12
	}
	if c.ListRetryDelay <= 0 {
		c.ListRetryDelay = 2 * time.Second
	}
	return nil
}
