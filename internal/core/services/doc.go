// Package services contains the application core: document ingestion,
// chunking, retrieval, conversational answer synthesis, and report
// generation. Services depend only on the driven ports and are wired to
// concrete adapters at startup.
package services
