// Package runtime wires config and the selected storage engine into a
// single-node instance. It exposes Open/Close, the active queue storage,
// and a basic health check against the engine's backing store.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(cfg)
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
//	store := rt.Storage()
package runtime
