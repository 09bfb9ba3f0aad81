package models

// Document is a source text used to build the passage index: a page of a
// medical reference book or a scraped web page.
type Document struct {
	ID       string
	URL      string
	Title    string
	Content  string
	Metadata map[string]interface{}
}

// ProcessedDocument is a Document split into chunks, with one embedding per chunk
// once the ingest pipeline has embedded it.
type ProcessedDocument struct {
	Document
	Chunks    []string
	Embedding [][]float32
}
