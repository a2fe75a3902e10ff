// Package discovery advertises and finds redial endpoints over mDNS/DNS-SD.
//
// Servers register a "_redial._tcp" instance whose TXT records carry the
// URL scheme, the WebSocket path and the preferred payload mode:
//
//	scheme=ws path=/events mode=text
//
// Clients browse for that service type and turn the first matching entry
// into a dialable endpoint with [Service.Endpoint].
package discovery
