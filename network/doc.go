// Package network exposes the node over HTTP.
//
// # Core Components
//
// Server: gin engine routing signed transactions to the dispatcher and
// serving balances and outcome records, optionally over TLS with a
// self-signed certificate.
//
// Client: Thin HTTP client used by the command line tool.
//
// # Endpoints
//
//	POST /tx                      submit a signed transaction
//	POST /tx/validate             dry-run the input checks of a transaction
//	GET  /accounts/:account/balance
//	GET  /events?from=&limit=     list outcome records
//	GET  /events/ws               stream new outcome records over a websocket
//	GET  /calls                   dispatchable calls
//	GET  /health
package network
