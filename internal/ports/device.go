package ports

import "context"

// Device is the external BLE device fleet. Every operation is async from
// the caller's point of view (it may block on real hardware I/O) and
// returns a Result rather than panicking or blocking forever; callers
// apply their own timeout via ctx.
type Device interface {
	Scan(ctx context.Context) (Result, error)
	Connect(ctx context.Context, id, name string) (Result, error)
	Disconnect(ctx context.Context, id string) (Result, error)
	Remove(ctx context.Context, id string) (Result, error)
	SyncAll(ctx context.Context) (Result, error)

	StartLocate(ctx context.Context, id string) (Result, error)
	StopLocate(ctx context.Context, id string) (Result, error)

	EnableBurstScan(ctx context.Context, durationMs int) (Result, error)
	DisableBurstScan(ctx context.Context) (Result, error)

	StartRecording(ctx context.Context, sessionID, exerciseID string, setNumber int) (Result, error)
	StopRecording(ctx context.Context) (Result, error)
	IsRecording() bool

	GetConnectedDevices(ctx context.Context) ([]DeviceInfo, error)
	GetAllDevices(ctx context.Context) ([]DeviceInfo, error)
}
