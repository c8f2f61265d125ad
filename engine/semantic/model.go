package semantic

// SearchResult is one k-NN hit from the mirror.
type SearchResult struct {
	PointID        string
	FacultyID      string
	Name           string
	Specialization string
	ProfileURL     string
	Score          float32
}
