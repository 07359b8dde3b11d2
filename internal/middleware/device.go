package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dukerupert/arena/internal/cookie"
)

// DeviceContextKey is the context key for the browser's device id.
const DeviceContextKey contextKey = "device_id"

// WithDevice makes sure every browser carries a device cookie. The id scopes
// persisted cart state.
func WithDevice(cookies *cookie.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := cookie.Value(r, cookie.DeviceName)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
				cookies.Set(w, cookie.DeviceName, id, cookie.DeviceMaxAge)
			}
			ctx := context.WithValue(r.Context(), DeviceContextKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetDeviceID returns the device id attached by WithDevice.
func GetDeviceID(ctx context.Context) string {
	id, _ := ctx.Value(DeviceContextKey).(string)
	return id
}
