package wallet

import (
	"net/mail"
	"strings"
)

// KeyValidator checks a payout key against its declared type. Stored as a
// typed function in the rule table so adding a payout rail never grows a
// switch inside the engine.
type KeyValidator func(key string) error

// MethodRules describes one payout rail: which request fields must be
// present, which payout key types are allowed, and how each key type is
// validated. The table is injected at construction; it is configuration,
// not code.
type MethodRules struct {
	RequiredFields []string
	PayoutTypes    map[string]KeyValidator
}

// RuleTable maps an upper-cased method name to its rules.
type RuleTable map[string]MethodRules

// DefaultRules returns the supported rails. PIX only, with the email key
// type as the single allowed payout key format.
func DefaultRules() RuleTable {
	return RuleTable{
		MethodPix: {
			RequiredFields: []string{"account_id", "method", "amount", "pix.type", "pix.key"},
			PayoutTypes: map[string]KeyValidator{
				PixTypeEmail: validateEmailKey,
			},
		},
	}
}

const (
	MethodPix    = "PIX"
	PixTypeEmail = "email"
)

func validateEmailKey(key string) error {
	addr, err := mail.ParseAddress(key)
	if err == nil && addr.Address == key {
		if at := strings.LastIndex(key, "@"); at >= 0 && strings.Contains(key[at:], ".") {
			return nil
		}
	}
	return E(CodeInvalidPixKey, map[string]any{
		"type": PixTypeEmail,
		"key":  key,
	})
}

// Methods lists the registered rail names, for error payloads.
func (t RuleTable) Methods() []string {
	out := make([]string, 0, len(t))
	for m := range t {
		out = append(out, m)
	}
	return out
}

// TypesFor lists the allowed payout key types of one rail.
func (r MethodRules) Types() []string {
	out := make([]string, 0, len(r.PayoutTypes))
	for t := range r.PayoutTypes {
		out = append(out, t)
	}
	return out
}
