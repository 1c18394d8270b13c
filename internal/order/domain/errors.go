package domain

import "errors"

// ---------- Errores de dominio ----------
// Los adapters envuelven la causa real con fmt.Errorf("%w: %w", ErrX, err)
// para que los casos de uso clasifiquen con errors.Is.
var (
	ErrMalformedPayload    = errors.New("malformed payload")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrSecretNotConfigured = errors.New("webhook secret not configured")
	ErrQueuePublish        = errors.New("queue publish failure")
	ErrQueueDelete         = errors.New("queue delete failure")
	ErrStoreRead           = errors.New("dedup store read failure")
	ErrStoreWrite          = errors.New("dedup store write failure")
	ErrEffectFailed        = errors.New("order effect failed")
	ErrDecode              = errors.New("log envelope decode failure")
)
