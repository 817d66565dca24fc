// Package domain defines the core types shared by the alert job: the raw
// query Table, the decoded change/error Log, alert-matrix Rules and
// notification Recipients.
//
// Types in this package are pure value objects with no database or mail
// dependencies. They are the shared language between the source loaders,
// the rule engine, the change-list compiler and the report renderer.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - Decoding and validation helpers are allowed (they're pure functions)
//   - Column names and role constants belong here
package domain
