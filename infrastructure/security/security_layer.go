package security

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"roadside_e2e/domain/entities"
	"roadside_e2e/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// ErrActionBlocked is returned for clicks that would complete a real purchase
var ErrActionBlocked = errors.New("action blocked by payment guard")

// paymentPathWords mark a checkout step when they appear as a word of the URL path
var paymentPathWords = map[string]bool{
	"payment": true, "payments": true, "pay": true, "checkout": true, "billing": true,
	"order": true, "purchase": true, "review": true,
}

// confirmPhrases are matched as whole words against the clicked element
var confirmPhrases = []string{
	"submit", "pay", "purchase", "buy", "place order", "confirm",
	"complete purchase", "complete order", "complete enrollment",
}

// PaymentGuard keeps scenarios from submitting a payment on the live site
type PaymentGuard struct {
	logger  *logrus.Logger
	enabled bool
}

var _ interfaces.ActionGuard = (*PaymentGuard)(nil)

func NewPaymentGuard(logger *logrus.Logger, allowPayment bool) *PaymentGuard {
	return &PaymentGuard{
		logger:  logger,
		enabled: !allowPayment,
	}
}

func (g *PaymentGuard) Check(ctx context.Context, action entities.Action, pageURL, target string) error {
	if !g.enabled || action.Type != entities.ActionClick {
		return nil
	}
	if !isPaymentPage(pageURL) {
		return nil
	}
	if phrase, ok := confirmPhrase(action, target); ok {
		g.logger.WithFields(logrus.Fields{
			"url":    pageURL,
			"action": action.String(),
			"target": target,
			"phrase": phrase,
		}).Warn("refusing payment confirmation click")
		return fmt.Errorf("%w: %s (%q) matches %q on %s", ErrActionBlocked, action.Query, target, phrase, pageURL)
	}
	return nil
}

func isPaymentPage(pageURL string) bool {
	path := pageURL
	if u, err := url.Parse(pageURL); err == nil {
		path = u.Path + " " + u.Fragment
	}
	for _, word := range strings.Fields(normalize(path)) {
		if paymentPathWords[word] {
			return true
		}
	}
	return false
}

// confirmPhrase checks the element text, or the query's name and text when
// the element has none of its own
func confirmPhrase(action entities.Action, target string) (string, bool) {
	if strings.TrimSpace(target) == "" {
		q := action.Query
		target = strings.Join([]string{q.Name, q.Text, q.HasText}, " ")
	}
	padded := " " + normalize(target) + " "
	for _, phrase := range confirmPhrases {
		if strings.Contains(padded, " "+phrase+" ") {
			return phrase, true
		}
	}
	return "", false
}

// normalize lowercases s and keeps only letters and digits, single-space separated
func normalize(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}
