// Package firestore implements driven.DocumentStore over the Firestore REST API.
//
// Lookups use the generated google.golang.org/api/firestore/v1 client. Queries
// are sent to the runQuery endpoint directly because it streams a JSON array
// the generated client cannot decode. Batch writes go through a single Commit
// call and are therefore atomic, with the Firestore limit of 500 writes.
//
// Document values are converted through their JSON wire form, so the adapter
// only depends on the documented REST encoding.
package firestore
