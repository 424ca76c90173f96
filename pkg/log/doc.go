/*
Package log provides structured logging shared by every package in this
module, wrapping zerolog to give JSON-structured logs with component-
specific child loggers and configurable severity filtering.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - zerolog instance, set via log.Init()     │          │
	│  │  - safe for concurrent use                  │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          Component Loggers                  │          │
	│  │  - WithComponent("schema")                  │          │
	│  │  - WithNode("node-1")                       │          │
	│  │  - WithEndpoint("xapian://node-1/twitter")  │          │
	│  │  - WithRevision(42)                         │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Log Levels

Debug, Info, Warn and Error map directly onto the zerolog levels of
the same name; anything else passed to Init defaults to Info.
*/
package log
