// Package pool provides bounded, LIFO reuse pools for slices and objects.
//
// Pools exist for hot paths that run once per generation cell or tile, where
// allocating a fresh scratch buffer every time would dominate the cost of the
// work itself.
//
// # Contract
//
// A pool owns at most Capacity free values. Get pops the most recently released
// value, or builds a new one with the pool's factory when none is suitable.
// Every value is handed out inside a [resource.Resource]; closing the handle
// offers the value back to the pool, which keeps it if there is room and drops
// it otherwise.
//
//   - Get never blocks. An empty pool mints a new value instead of waiting.
//   - One mutex per pool, held only for the push or pop. Factories and cleanup
//     hooks run outside it.
//   - Every Get issues a fresh handle, so a closed handle can never observe a
//     value that has since been handed to another goroutine.
//
// # Misses
//
// A miss is a Get that had to build a fresh value. The first Capacity misses
// are how a pool fills up and are not reported; MissCount only reports the
// excess. Report drains that excess into a [Sink] at most once per interval.
//
// Example:
//
//	heights := pool.NewArrayPool(16, func(n int) []float32 { return make([]float32, n) })
//
//	func fill(tile Tile) {
//	    h := heights.Get(tile.Size * tile.Size)
//	    defer h.Close()
//	    buf := h.Get()
//	    ...
//	}
package pool
