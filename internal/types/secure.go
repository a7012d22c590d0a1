package types

// redactedPlaceholder replaces secret values in logs and serialized output.
const redactedPlaceholder = "***REDACTED***"

var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString is a string type that prevents accidental logging or
// serialization of sensitive values (the seat-count signing secret, Stripe
// keys). String() and MarshalJSON() return a redacted placeholder; callers
// that genuinely need the plaintext use Unmask().
type SecretString string

// String returns a redacted placeholder instead of the raw value.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder as a JSON string.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// Unmask returns the raw plaintext value of the secret. Usage should be
// limited to the points where the value crosses a trust boundary (HMAC
// computation, Authorization headers, connection strings).
func (s SecretString) Unmask() string {
	return string(s)
}
