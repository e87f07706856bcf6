// Package http implements an HTTP-based transport layer for the txKV RPC system.
//
// Endpoints served by httpServerTransport:
//
//	POST /         one serialized request in the body, one serialized response in the reply
//	GET  /metrics  server metrics in the prometheus text format (VictoriaMetrics/metrics)
//
// httpClientTransport posts each request to the configured endpoint. Like the socket
// transports it keeps a single request in flight and does not retry failed requests.
// Endpoints can be given as URL (http://host:port) or as plain host:port.
//
// With log level debug every request is logged by a middleware together with its
// status code and duration.
package http
