// Package monitor observes a slave from the outside and serves what it
// sees over HTTP.
//
// A [Recorder] installed as the slave's tracer turns completed
// transactions and protocol faults into [Event] values. A worker
// goroutine publishes them on an [EventBus] and journals transactions in
// a SQLite [Store]. [NewRouter] exposes the slave's buffers, a bus master
// and the journal as a REST API with a WebSocket event stream:
//
//	GET  /api/v1/status              slave and monitor status
//	GET  /api/v1/buffer/{name}       rx or tx buffer contents
//	POST /api/v1/write               {"address": 5, "data": [170, 187]}
//	POST /api/v1/read                {"address": 5, "count": 2}
//	POST /api/v1/address             {"address": 5}
//	GET  /api/v1/transactions        journal, newest first (?limit=)
//	GET  /api/v1/events              WebSocket live stream
//
// Built with the profile tag, the router also serves /debug/pprof/.
package monitor
