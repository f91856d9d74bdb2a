package signal

import "context"

// Gateway reads and writes signals on the device.
type Gateway interface {
	FetchAll(ctx context.Context) (Snapshot, error)
	Set(ctx context.Context, s Signal) error
	Delete(ctx context.Context, zoneID string) error
}
