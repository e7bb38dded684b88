// Package client provides the authenticated HTTP primitive shared by all
// flctl commands: a JSON client that attaches a bearer token from a token
// source and decodes API errors uniformly.
package client
