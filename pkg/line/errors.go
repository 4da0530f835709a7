package line

import "errors"

// ErrBadSignature is returned when a webhook body fails HMAC verification.
var ErrBadSignature = errors.New("webhook signature mismatch")
