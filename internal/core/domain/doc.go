// Package domain contains the core entities of the document Q&A pipeline:
// documents, chunks, conversations, citations and reports.
//
// Domain types carry no infrastructure concerns. Persistence, embedding
// and completion services live behind the ports in core/ports.
package domain
