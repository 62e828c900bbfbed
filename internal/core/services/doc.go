// Package services implements the engine's business logic: listing and
// diffing the stage catalog, keeping the vector index fresh, retrieving
// grounded context for questions and running the chat loop. Services
// depend only on the port interfaces, never on concrete adapters.
package services
