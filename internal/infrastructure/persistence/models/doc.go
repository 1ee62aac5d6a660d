// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
//   - base.go: shared columns (BaseModel, CompanyAggregateModel)
//   - company.go: companies, country payment settings, partners
//   - document.go: business documents
//   - treasury.go: payments and payment allocations
//   - fiscal.go: fiscal hash chain entries
//   - inventory.go: inventory countings and counting items
//   - event.go: recorded domain events
package models
