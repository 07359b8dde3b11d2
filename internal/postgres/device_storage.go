package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// TxBeginner is a DBTX that can open transactions: *pgxpool.Pool, *pgx.Conn
// and pgx.Tx (as a savepoint).
type TxBeginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DeviceStorage is key/value storage scoped to one browser device. It backs
// the cart.
type DeviceStorage struct {
	db       TxBeginner
	deviceID string
}

// NewDeviceStorage returns the storage of deviceID.
func NewDeviceStorage(db TxBeginner, deviceID string) *DeviceStorage {
	return &DeviceStorage{db: db, deviceID: deviceID}
}

// Load returns nil data for a key that was never written.
func (s *DeviceStorage) Load(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(ctx,
		`SELECT data FROM device_storage WHERE device_id = $1 AND key = $2`, s.deviceID, key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, "device_storage.load", nil)
	}
	return data, nil
}

func (s *DeviceStorage) Save(ctx context.Context, key string, data []byte) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO device_storage (device_id, key, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (device_id, key) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		s.deviceID, key, data)
	return mapError(err, "device_storage.save", nil)
}

// Update rewrites key inside a transaction holding the row lock, so updates
// from concurrent requests or other instances apply one after another.
func (s *DeviceStorage) Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	const op = "device_storage.update"

	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		// Create the row first so the lock also covers a device's first write.
		if _, err := tx.Exec(ctx, `
			INSERT INTO device_storage (device_id, key, data)
			VALUES ($1, $2, ''::bytea)
			ON CONFLICT (device_id, key) DO NOTHING`, s.deviceID, key); err != nil {
			return mapError(err, op, nil)
		}

		var current []byte
		if err := tx.QueryRow(ctx, `
			SELECT data FROM device_storage
			WHERE device_id = $1 AND key = $2
			FOR UPDATE`, s.deviceID, key).Scan(&current); err != nil {
			return mapError(err, op, nil)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE device_storage SET data = $3, updated_at = now()
			WHERE device_id = $1 AND key = $2`, s.deviceID, key, next)
		return mapError(err, op, nil)
	})
}

// PurgeDeviceStorage removes entries untouched for longer than olderThan.
func PurgeDeviceStorage(ctx context.Context, db DBTX, olderThan time.Duration) (int64, error) {
	tag, err := db.Exec(ctx,
		`DELETE FROM device_storage WHERE updated_at < now() - make_interval(secs => $1)`, olderThan.Seconds())
	if err != nil {
		return 0, mapError(err, "device_storage.purge", nil)
	}
	return tag.RowsAffected(), nil
}
