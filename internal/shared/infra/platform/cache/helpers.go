package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// opTimeout acota cada operación de caché; un fallo nunca llega al llamador.
const opTimeout = 200 * time.Millisecond

// TrySet actualiza la caché sin propagar errores. Es síncrono para que las
// escrituras y las invalidaciones se apliquen en el orden de las peticiones.
func TrySet(ctx context.Context, cache Cache, key string, value interface{}, ttl int, log *zap.Logger) {
	if cache == nil {
		return
	}
	bestEffort(ctx, log, "set", key, func(ctx context.Context) error {
		return cache.Set(ctx, key, value, ttl)
	})
}

// TryDelete invalida la key sin propagar errores.
func TryDelete(ctx context.Context, cache Cache, key string, log *zap.Logger) {
	if cache == nil {
		return
	}
	bestEffort(ctx, log, "delete", key, func(ctx context.Context) error {
		return cache.Delete(ctx, key)
	})
}

func bestEffort(ctx context.Context, log *zap.Logger, op, key string, fn func(context.Context) error) {
	// Sobrevive a la cancelación de la petición: el cambio ya está confirmado.
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opTimeout)
	defer cancel()

	if err := fn(opCtx); err != nil {
		log.Warn("Cache operation failed",
			zap.String("op", op),
			zap.String("key", key),
			zap.Error(err))
	}
}
