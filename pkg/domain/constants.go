package domain

import "time"

const (
	// BroadcastAddr is the reserved destination meaning "all peers".
	// Broadcast traffic is never acknowledged.
	BroadcastAddr = uint32(0xFFFFFFFF)

	DefaultTCPPort  = 4403
	DefaultBaudRate = 115200

	DefaultConnectTimeout = 30 * time.Second
	DeviceReleaseGrace    = 1 * time.Second
	WorkerJoinTimeout     = 3 * time.Second

	MinReconnectBackoff = 2 * time.Second
	MaxReconnectBackoff = 30 * time.Second

	DefaultAckTimeout = 25 * time.Second
	DefaultAckRetries = 0

	DefaultPortScanInterval = 3 * time.Second

	MinZoom = 1
	MaxZoom = 18

	// Recenter-all falls back to a fixed close-up zoom when the node
	// bounding box is effectively a point.
	DegenerateSpanDeg  = 0.001
	DegenerateSpanZoom = 15

	CacheCoordPrecision = 4

	DefaultTileTimeout = 10 * time.Second
	TileUserAgent      = "meshtui/1.0 (+https://github.com/SAMS0N1TE/meshtui)"

	DefaultMQTTHost         = "localhost"
	DefaultMQTTPort         = 1883
	DefaultMQTTKeepAlive    = 60 * time.Second
	DefaultMQTTPingTimeout  = 10 * time.Second
	DefaultMQTTConnTimeout  = 30 * time.Second
	DefaultMQTTReconnectInt = 30 * time.Second
	DefaultMQTTDisconnectMs = 250
	MaxMQTTPayloadLog       = 200

	LogRingSize = 2000

	MaxSenderNameLen = 15
)
