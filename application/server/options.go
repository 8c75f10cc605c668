package server

import "time"

type LifespanMode string

const (
	// LifespanAuto runs the handshake, but tolerates apps that do not support it.
	LifespanAuto LifespanMode = "auto"
	// LifespanOn requires the handshake to succeed.
	LifespanOn LifespanMode = "on"
	// LifespanOff skips the handshake.
	LifespanOff LifespanMode = "off"
)

type Options struct {
	Lifespan LifespanMode
	// LifespanTimeout bounds each lifespan phase. Zero means no limit.
	LifespanTimeout time.Duration
}
