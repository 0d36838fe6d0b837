// Package packs provides the tool registry and dispatcher.
//
// Tools are grouped into built-in packs and registered once at startup:
//
//	registry := packs.NewRegistry(logger)
//	registry.MustRegister(builtins.DataPack(src), builtins.AnalyticsPack(a))
//
// Registry.List returns the catalogue in registration order; it is what the
// model is told it may call. Tool names are globally unique and a collision
// is fatal at startup.
//
// The Dispatcher runs calls:
//
//	res := dispatcher.Execute(ctx, "get_player", input, tc)
//
// Execute never fails. Unknown tools, missing required fields, handler
// errors and handler panics all come back as Result.Error, so a failed call
// still produces a tool result the model can read. ExecuteAll runs the
// independent calls of one model turn concurrently and returns results in
// request order.
package packs
