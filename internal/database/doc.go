// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, settings seeding
//	├── contacts/        # Contacts, field history, listing and filters
//	├── notifications/   # Operator notifications
//	├── settings/        # Runtime settings grouped by category
//	└── sync/            # Progress of batch imports and directory syncs
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./phonedir.db", logger)
//
//	contactsRepo := contacts.NewRepository(db.DB)
//	page, err := contactsRepo.List(entities.ContactQuery{Page: 1, PerPage: 25})
//
// Each sub-package exposes a Repository with a NewRepository(db *gorm.DB)
// constructor. Interface conformance is checked in internal/interfaces.
package database
