// Package domain defines the core domain types shared by the hub.
//
// Concept-oriented files (id.go, table.go, kitchen.go, catalog.go, notification.go, recipients.go)
// hold the entity types and their JSON shapes. No behaviour beyond encoding lives here.
package domain
