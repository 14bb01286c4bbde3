package webhook

import "context"

// SecretSource resolves the shared secret for a webhook subscription. The
// subscription registry itself lives outside the gateway core; the verifier
// only needs the lookup.
type SecretSource interface {
	SecretFor(ctx context.Context, subscription string) (string, bool, error)
}
