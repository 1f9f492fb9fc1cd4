package orgauth

import (
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
)

// DefaultPasswordMinLength is the policy floor when no configuration is
// provided.
const DefaultPasswordMinLength = 8

// PasswordPolicy describes the strength rules applied everywhere a
// plaintext password enters the system: registration, password reset,
// and invitation acceptance. Those are the only three call sites.
type PasswordPolicy struct {
	MinLength      int
	RequireLetter  bool
	RequireNumber  bool
}

// DefaultPasswordPolicy returns the baseline policy: minimum length 8,
// no composition rules.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: DefaultPasswordMinLength}
}

// PasswordPolicyFromConfig reads the configured minimum length, keeping
// the default when the config carries a zero value.
func PasswordPolicyFromConfig(cfg Config) PasswordPolicy {
	policy := DefaultPasswordPolicy()
	if cfg != nil && cfg.GetPasswordMinLength() > 0 {
		policy.MinLength = cfg.GetPasswordMinLength()
	}
	return policy
}

// ValidatePasswordStrength checks the plaintext against the policy and
// returns ErrWeakPassword when unmet. It never logs or stores the
// plaintext.
func ValidatePasswordStrength(password string, policy PasswordPolicy) error {
	minLength := policy.MinLength
	if minLength <= 0 {
		minLength = DefaultPasswordMinLength
	}

	rules := []validation.Rule{
		validation.Required,
		validation.Length(minLength, 0),
	}
	if policy.RequireLetter {
		rules = append(rules, validation.By(requireRune("letter", unicode.IsLetter)))
	}
	if policy.RequireNumber {
		rules = append(rules, validation.By(requireRune("number", unicode.IsDigit)))
	}

	if err := validation.Validate(password, rules...); err != nil {
		return goerrors.Wrap(err, ErrWeakPassword.Category, ErrWeakPassword.Message).
			WithTextCode(ErrWeakPassword.TextCode).
			WithMetadata(map[string]any{"min_length": minLength})
	}

	return nil
}

func requireRune(label string, match func(rune) bool) func(value any) error {
	return func(value any) error {
		s, _ := value.(string)
		for _, r := range s {
			if match(r) {
				return nil
			}
		}
		return goerrors.New("password must contain at least one "+label, goerrors.CategoryValidation)
	}
}
