// Package ws implements the WebSocket hub for scanboard-server.
//
// Hub manages a set of connected clients and broadcasts the doughnut charts of
// every live cluster to all of them on a configurable interval, and again
// whenever Notify is called after an upload.
//
// Message format sent to clients:
//
//	{
//	  "event": "charts",
//	  "data":  [{"cluster": "prod", "score": 83, "grade": "B",
//	             "charts": [{"target": "clusterScoreChart", "config": {...}}, ...]}]
//	}
//
// Each config is the Chart.js object the dashboard page passes to
// `new Chart(target, config)`. The endpoint is mounted at /ws/stream.
package ws
