// Package http implements the application side of the HTTP sub-protocol:
// assembling a request body from http.request messages and emitting a
// response as one http.response.start followed by http.response.body messages.
//
// Wire framing is not handled here. The server in front of the application
// already turned bytes into messages.
package http
