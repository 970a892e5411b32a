package core

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var vpaPattern = regexp.MustCompile(`[a-zA-Z0-9._-]+@[a-zA-Z0-9.-]+`)

// PaymentLink builds the upi://pay deep link that hands a payment to the
// user's UPI app.
func PaymentLink(vpa string, amount decimal.Decimal) string {
	q := url.Values{}
	q.Set("pa", vpa)
	q.Set("am", amount.StringFixed(2))
	q.Set("cu", "INR")
	u := url.URL{Scheme: "upi", Host: "pay", RawQuery: q.Encode()}
	return u.String()
}

// ExtractVPA pulls the payee address out of decoded UPI QR text. It accepts a
// upi://pay URI or, failing that, the first address-like token.
func ExtractVPA(payload string) (string, bool) {
	payload = strings.TrimSpace(payload)
	if u, err := url.Parse(payload); err == nil && strings.EqualFold(u.Scheme, "upi") {
		if !strings.EqualFold(u.Host, "pay") {
			return "", false
		}
		pa := u.Query().Get("pa")
		return pa, pa != ""
	}
	if m := vpaPattern.FindString(payload); m != "" {
		return m, true
	}
	return "", false
}
