// Package ctlplane defines the shared vocabulary of the x3270 scripting and
// control plane: commands, tasks, sources, capabilities, and the events a
// running task streams back to whoever submitted it.
//
// ctlplane itself holds no scheduling logic — that lives in [dispatch],
// which implements the task-queue stack described by the command
// dispatcher. Transports (package peer for the s3270 line protocol,
// package httpd for the embedded REST server, package launcher for child
// scripts) all submit [Command] values through a [dispatch.Dispatcher] and
// receive a [Run] handle whose [Run.Events] channel carries the resulting
// output.
//
// Quick start:
//
//	d := dispatch.New(engineActions)
//	run := d.Submit(ctx, ctlplane.Command{Name: "Query", Args: []string{"Cursor"}}, cb)
//	for ev := range run.Events() { ... }
package ctlplane
