package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Sign returns the hex HMAC-SHA256 the gateway attaches to a callback.
func Sign(secret string, ref string, bookingID int32, amount int64, success bool, txnID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s|%d|%d|%t|%s", ref, bookingID, amount, success, txnID)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches the callback fields. An empty secret disables verification.
func Verify(secret, signature string, ref string, bookingID int32, amount int64, success bool, txnID string) bool {
	if secret == "" {
		return true
	}
	expected := Sign(secret, ref, bookingID, amount, success, txnID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
