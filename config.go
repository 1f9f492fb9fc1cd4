package orgauth

import "time"

// Defaults applied by NewConfig. Every value is overridable; the
// invitation and reset TTLs in particular are configuration on purpose
// rather than constants scattered around call sites.
const (
	DefaultAccessTokenTTL   = 60 * time.Minute
	DefaultRefreshTokenTTL  = 7 * 24 * time.Hour
	DefaultClockSkewLeeway  = 5 * time.Minute
	DefaultInvitationTTL    = 7 * 24 * time.Hour
	DefaultPasswordResetTTL = 24 * time.Hour
)

// SimpleConfig is a plain struct implementation of Config.
type SimpleConfig struct {
	SigningKey        string
	SigningMethod     string
	ContextKey        string
	Issuer            string
	Audience          []string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	ClockSkewLeeway   time.Duration
	InvitationTTL     time.Duration
	PasswordResetTTL  time.Duration
	PasswordMinLength int
}

var _ Config = (*SimpleConfig)(nil)

// NewConfig returns a SimpleConfig with every option at its default.
func NewConfig(signingKey string) *SimpleConfig {
	return &SimpleConfig{
		SigningKey:        signingKey,
		SigningMethod:     "HS256",
		ContextKey:        "user",
		AccessTokenTTL:    DefaultAccessTokenTTL,
		RefreshTokenTTL:   DefaultRefreshTokenTTL,
		ClockSkewLeeway:   DefaultClockSkewLeeway,
		InvitationTTL:     DefaultInvitationTTL,
		PasswordResetTTL:  DefaultPasswordResetTTL,
		PasswordMinLength: DefaultPasswordMinLength,
	}
}

func (c *SimpleConfig) GetSigningKey() string    { return c.SigningKey }
func (c *SimpleConfig) GetSigningMethod() string { return c.SigningMethod }

func (c *SimpleConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return "user"
	}
	return c.ContextKey
}

func (c *SimpleConfig) GetIssuer() string     { return c.Issuer }
func (c *SimpleConfig) GetAudience() []string { return c.Audience }

func (c *SimpleConfig) GetAccessTokenTTL() time.Duration {
	if c.AccessTokenTTL <= 0 {
		return DefaultAccessTokenTTL
	}
	return c.AccessTokenTTL
}

func (c *SimpleConfig) GetRefreshTokenTTL() time.Duration {
	if c.RefreshTokenTTL <= 0 {
		return DefaultRefreshTokenTTL
	}
	return c.RefreshTokenTTL
}

func (c *SimpleConfig) GetClockSkewLeeway() time.Duration {
	if c.ClockSkewLeeway < 0 {
		return DefaultClockSkewLeeway
	}
	return c.ClockSkewLeeway
}

func (c *SimpleConfig) GetInvitationTTL() time.Duration {
	if c.InvitationTTL <= 0 {
		return DefaultInvitationTTL
	}
	return c.InvitationTTL
}

func (c *SimpleConfig) GetPasswordResetTTL() time.Duration {
	if c.PasswordResetTTL <= 0 {
		return DefaultPasswordResetTTL
	}
	return c.PasswordResetTTL
}

func (c *SimpleConfig) GetPasswordMinLength() int {
	if c.PasswordMinLength <= 0 {
		return DefaultPasswordMinLength
	}
	return c.PasswordMinLength
}
