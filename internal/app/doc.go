// Package app composes the headshot platform into a running application.
//
// The package wires storage, domain services, and background workers together
// and manages their lifecycle. Business rules live in the service packages
// under internal/app/services/; pure data models live under
// internal/app/domain/; persistence behind the interfaces in
// internal/app/storage/ with in-memory and PostgreSQL implementations.
// HTTP transport is layered on top by internal/app/httpapi.
package app
