// Package models provides GORM-based models with a Django ORM-like interface
// for managing rental invites, applications and their reference forms.
//
// Each entity has a manager (db.Invites, db.Applications, ...) that owns its
// queries. History columns are postgres text[] arrays that only ever grow;
// the managers append to them in a single conditional UPDATE so concurrent
// requests cannot drop each other's entries.
package models
