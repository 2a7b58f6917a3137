// Package payment validates the payment form submitted for a booking draft
// and reduces it to the redacted details that may be persisted.
package payment

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

var (
	gcashPhonePattern = regexp.MustCompile(`^09\d{9}$`)
	cardDigitsPattern = regexp.MustCompile(`^\d+$`)
	expiryPattern     = regexp.MustCompile(`^\d{2}/\d{2}$`)
	cvvPattern        = regexp.MustCompile(`^\d{3,4}$`)
)

const minCardDigits = 13

// ErrUnsupportedMethod is returned for anything other than gcash or card.
var ErrUnsupportedMethod = errors.New("unsupported payment method")

// Input is the raw payment form.  Only the fields of the chosen method are
// inspected.
type Input struct {
	Method model.PaymentMethod `json:"method"`

	GCashNumber string `json:"gcash_number"`
	GCashName   string `json:"gcash_name"`

	CardNumber string `json:"card_number"`
	CardExpiry string `json:"card_expiry"`
	CardCVV    string `json:"card_cvv"`
	CardName   string `json:"card_name"`
}

// ValidationError maps form field names to messages.
type ValidationError map[string]string

func (e ValidationError) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e[k]))
	}
	return "invalid payment details (" + strings.Join(parts, "; ") + ")"
}

// Validate checks the form synchronously.  It returns ErrUnsupportedMethod
// or a ValidationError; nil means the form may be committed.
func Validate(in Input) error {
	errs := ValidationError{}
	switch in.Method {
	case model.MethodGCash:
		// the number is matched exactly as submitted, surrounding spaces included
		if !gcashPhonePattern.MatchString(in.GCashNumber) {
			errs["gcash_number"] = "must be an 11-digit mobile number starting with 09"
		}
		if strings.TrimSpace(in.GCashName) == "" {
			errs["gcash_name"] = "account name is required"
		}
	case model.MethodCard:
		digits := stripSpaces(in.CardNumber)
		if !cardDigitsPattern.MatchString(digits) || len(digits) < minCardDigits {
			errs["card_number"] = "must contain at least 13 digits"
		}
		if !expiryPattern.MatchString(strings.TrimSpace(in.CardExpiry)) {
			errs["card_expiry"] = "must be in MM/YY format"
		}
		if !cvvPattern.MatchString(strings.TrimSpace(in.CardCVV)) {
			errs["card_cvv"] = "must be 3 or 4 digits"
		}
		if strings.TrimSpace(in.CardName) == "" {
			errs["card_name"] = "cardholder name is required"
		}
	default:
		return ErrUnsupportedMethod
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Redact keeps what a receipt needs and drops the rest.  Call it only on
// validated input.
func Redact(in Input, paidAt time.Time) model.PaymentDetails {
	d := model.PaymentDetails{PaidAt: paidAt.UTC()}
	switch in.Method {
	case model.MethodGCash:
		d.AccountName = strings.TrimSpace(in.GCashName)
		d.PhoneLast4 = last4(strings.TrimSpace(in.GCashNumber))
	case model.MethodCard:
		d.Cardholder = strings.TrimSpace(in.CardName)
		d.CardLast4 = last4(stripSpaces(in.CardNumber))
		d.Expiry = strings.TrimSpace(in.CardExpiry)
	}
	return d
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func last4(s string) string {
	if len(s) <= 4 {
		return s
	}
	return s[len(s)-4:]
}
