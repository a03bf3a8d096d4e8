package executor

import "runtime"

// Config sizes an Executor. Zero values are replaced with defaults by NewConfig and New.
type Config struct {
	Workers    int // default: runtime.NumCPU()
	BufferSize int // tasks a worker takes per queue visit; default: 1
}

func NewConfig(workers, bufferSize int) Config {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return Config{
		Workers:    workers,
		BufferSize: bufferSize,
	}
}
