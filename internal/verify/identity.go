package verify

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/careerdesk/careerdesk-backend/internal/domain"
)

// Email validation regex (stricter than RFC 5322 for practical use)
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

// Phone numbers are normalized to E.164: optional +, 8-15 digits.
var phoneRegex = regexp.MustCompile(`^\+?[1-9][0-9]{7,14}$`)

// phoneStripper removes separators commonly typed into phone fields.
var phoneStripper = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

const maxEmailLength = 254 // RFC 5321

// NormalizeIdentity validates a raw email address or phone number and
// returns its canonical form: lowercased/trimmed for emails, E.164 with a
// leading + for phones. Format check only; no deliverability check.
func NormalizeIdentity(raw string) (domain.Identity, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return domain.Identity{}, domain.ErrInvalidIdentity
	}

	if strings.Contains(trimmed, "@") {
		return normalizeEmail(trimmed)
	}
	return normalizePhone(trimmed)
}

func normalizeEmail(raw string) (domain.Identity, error) {
	normalized := strings.ToLower(raw)
	if len(normalized) > maxEmailLength {
		return domain.Identity{}, domain.ErrInvalidIdentity
	}
	addr, err := mail.ParseAddress(normalized)
	if err != nil || !emailRegex.MatchString(addr.Address) {
		return domain.Identity{}, domain.ErrInvalidIdentity
	}
	return domain.Identity{Kind: domain.IdentityEmail, Value: addr.Address}, nil
}

func normalizePhone(raw string) (domain.Identity, error) {
	stripped := phoneStripper.Replace(raw)
	if !phoneRegex.MatchString(stripped) {
		return domain.Identity{}, domain.ErrInvalidIdentity
	}
	if !strings.HasPrefix(stripped, "+") {
		stripped = "+" + stripped
	}
	return domain.Identity{Kind: domain.IdentityPhone, Value: stripped}, nil
}
