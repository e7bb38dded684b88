// Package authproxy implements the short-lived loopback proxy that brokers a
// device authorization attempt: it issues device/user code pairs, redirects
// the browser to the upstream provider, performs the confidential
// authorization-code exchange, and delivers the resulting token to the
// polling CLI exactly once.
package authproxy
