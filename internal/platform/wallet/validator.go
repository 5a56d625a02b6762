package wallet

import (
	"strings"
	"time"
)

// SchedulingHorizon is how far ahead a withdrawal may be scheduled.
const SchedulingHorizon = 7 * 24 * time.Hour

// WithdrawRequest is the engine's input, transport-independent.
// Amount is integer cents, already parsed at the boundary.
type WithdrawRequest struct {
	AccountID string
	Method    string
	Amount    int64
	PixType   string
	PixKey    string
	Schedule  *time.Time
}

// Validator is the pure rule engine: no I/O, deterministic given the
// request and "now". Rules are injected, never a package-level table.
type Validator struct {
	rules RuleTable
}

func NewValidator(rules RuleTable) *Validator {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Validator{rules: rules}
}

// field returns a dotted-path value from the request, empty when unset.
func (r WithdrawRequest) field(path string) string {
	switch path {
	case "account_id":
		return r.AccountID
	case "method":
		return r.Method
	case "amount":
		if r.Amount != 0 {
			return "set"
		}
		return ""
	case "pix.type":
		return r.PixType
	case "pix.key":
		return r.PixKey
	}
	return ""
}

// ValidateRequiredFields collects every missing field for the selected
// method and reports them together rather than short-circuiting.
func (v *Validator) ValidateRequiredFields(req WithdrawRequest) error {
	rules, ok := v.rules[strings.ToUpper(req.Method)]
	if !ok {
		// Unknown method: fall back to the PIX field list so the caller
		// still learns about empty fields before the method error.
		rules = v.rules[MethodPix]
	}
	var missing []string
	for _, path := range rules.RequiredFields {
		if strings.TrimSpace(req.field(path)) == "" {
			missing = append(missing, path)
		}
	}
	if len(missing) > 0 {
		return E(CodeRequiredFieldMissing, map[string]any{"missing_fields": missing})
	}
	return nil
}

// ValidateMethod rejects rails outside the injected table.
func (v *Validator) ValidateMethod(method string) error {
	if _, ok := v.rules[strings.ToUpper(method)]; !ok {
		return E(CodeUnsupportedMethod, map[string]any{
			"supported_methods": v.rules.Methods(),
			"provided_method":   method,
		})
	}
	return nil
}

// ValidatePayoutKey checks the key type against the method's allow-list,
// then runs the type's own format validator.
func (v *Validator) ValidatePayoutKey(method, pixType, key string) error {
	rules, ok := v.rules[strings.ToUpper(method)]
	if !ok {
		return E(CodeUnsupportedMethod, map[string]any{"provided_method": method})
	}
	validate, ok := rules.PayoutTypes[pixType]
	if !ok {
		return E(CodeInvalidPixType, map[string]any{
			"valid_types":   rules.Types(),
			"provided_type": pixType,
		})
	}
	return validate(key)
}

// ValidateAmount rejects non-positive amounts.
func (v *Validator) ValidateAmount(cents int64) error {
	if cents <= 0 {
		return E(CodeInvalidWithdrawAmount, map[string]any{"amount": FormatCents(cents)})
	}
	return nil
}

// ValidateScheduling enforces the (now, now+7d] window.
func (v *Validator) ValidateScheduling(scheduledFor *time.Time, now time.Time) error {
	if scheduledFor == nil || scheduledFor.IsZero() {
		return E(CodeSchedulingError, nil)
	}
	if !scheduledFor.After(now) {
		return E(CodePastSchedulingNotAllowed, map[string]any{
			"scheduled_for": scheduledFor.UTC().Format(time.RFC3339),
		})
	}
	if scheduledFor.Sub(now) > SchedulingHorizon {
		return E(CodeSchedulingLimitExceeded, map[string]any{"max_days": 7})
	}
	return nil
}

// ValidateCreate runs the creation-time checks in order: required fields,
// method, amount, payout key. Scheduling is validated separately because
// it needs "now".
func (v *Validator) ValidateCreate(req WithdrawRequest) error {
	if err := v.ValidateRequiredFields(req); err != nil {
		return err
	}
	if err := v.ValidateMethod(req.Method); err != nil {
		return err
	}
	if err := v.ValidateAmount(req.Amount); err != nil {
		return err
	}
	return v.ValidatePayoutKey(req.Method, req.PixType, req.PixKey)
}
