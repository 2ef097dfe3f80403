// Package auth provides authentication middleware for scanboard-server.
//
// APIKey(mode, header, key, onReject) returns HTTP middleware that validates
// the API key carried in the named request header. It guards audit uploads;
// the dashboard and read-only API stay open.
//
// When mode != "apikey" all requests pass through (useful for local
// development with auth disabled). In apikey mode a missing or incorrect key
// is answered with 401 and a JSON error body. An empty expected key rejects
// every request.
package auth
