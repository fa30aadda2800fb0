// Package mock provides test doubles for the ai interfaces.
// Vectors are deterministic functions of the input text, so tests get
// repeatable similarity behavior without any external service.
package mock
