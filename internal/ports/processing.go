package ports

import "context"

// MotionSubscriber is invoked with each new motion sample.
type MotionSubscriber func(MotionSample)

// DeviceStatusSubscriber is invoked with each device status change.
type DeviceStatusSubscriber func(DeviceStatus)

// BatterySubscriber is invoked with each battery-level update.
type BatterySubscriber func(BatteryLevel)

// Unsubscribe cancels a subscription registered with Processing.
type Unsubscribe func()

// Processing is the sensor-processing pipeline: current readings plus
// push subscriptions the streaming domain uses to fan data out to
// sessions without polling.
type Processing interface {
	GetCurrentMotion(ctx context.Context) ([]MotionSample, error)
	GetDeviceStatus(ctx context.Context) ([]DeviceStatus, error)
	GetBatteryLevels(ctx context.Context) ([]BatteryLevel, error)

	SubscribeMotion(cb MotionSubscriber) Unsubscribe
	SubscribeDeviceStatus(cb DeviceStatusSubscriber) Unsubscribe
	SubscribeBattery(cb BatterySubscriber) Unsubscribe
}
