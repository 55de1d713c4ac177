// Package clientmeta implements the router's client-metadata domain
// processor: register, metadata-update, action-register, and
// action-trigger. Registration and metadata mutation delegate entirely to
// internal/connmgr, whose own onClientListChange hook is responsible for
// broadcasting the updated client list; this package only forwards
// action-trigger messages directly to the named target session.
package clientmeta
