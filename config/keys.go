package config

const (
	delimiter = "."

	KeyLog       = "log"
	KeyLogLevel  = KeyLog + delimiter + "level"
	KeyLogFormat = KeyLog + delimiter + "format"

	KeyExecutor           = "executor"
	KeyExecutorWorkers    = KeyExecutor + delimiter + "workers"
	KeyExecutorBufferSize = KeyExecutor + delimiter + "buffer_size"

	KeyReport         = "report"
	KeyReportInterval = KeyReport + delimiter + "interval"

	KeyCache    = "cache"
	KeyCacheTTL = KeyCache + delimiter + "ttl"

	KeyPools        = "pools"
	keyPoolCapacity = "capacity"
)

// PoolCapacityKey returns the dotted key of a named pool's capacity.
func PoolCapacityKey(name string) string {
	return KeyPools + delimiter + name + delimiter + keyPoolCapacity
}
