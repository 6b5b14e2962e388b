package prometheus

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// register adds c to reg, returning the already registered collector when
// an identical one exists so constructors can be called more than once per
// registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
