package mode

// Mode is the retrieval strategy.
type Mode string

// Retrieval mode constants.
const (
	// Hybrid fuses vector and keyword search via RRF.
	Hybrid Mode = "hybrid"
	// Vector runs semantic (embedding) search only.
	Vector Mode = "vector"
	// Keyword runs lexical (BM25) search only.
	Keyword Mode = "keyword"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Hybrid || m == Vector || m == Keyword
}
