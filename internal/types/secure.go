package types

// redactedPlaceholder replaces secret values wherever they would be printed.
const redactedPlaceholder = "***REDACTED***"

// redactedJSON is the placeholder pre-encoded as a JSON string.
var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString holds the credentials the service carries in config: the
// Postgres and Redis DSNs, the Stripe API key, and the webhook signing
// secret. It satisfies fmt.Stringer and json.Marshaler with a redacted
// placeholder, so a logged or serialized config struct never exposes the
// plaintext.
//
// Call Unmask only at the point of use, when handing the value to a driver
// or SDK.
type SecretString string

// String returns the redacted placeholder. fmt verbs and slog attribute
// formatting go through this, keeping secrets out of log output.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder, keeping secrets out of
// serialized config dumps and API responses.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// Unmask returns the plaintext. Callers are the pgx and redis pool
// constructors, the Stripe client, and webhook signature verification.
func (s SecretString) Unmask() string {
	return string(s)
}
