// Package store defines the persistence contracts consumed by the service
// layer, together with the sentinel errors every implementation maps its
// backend failures onto. Implementations live under internal/platform.
package store
