package ingest

const (
	// RankPages is the number of ranking pages requested per fetch.
	RankPages = 25

	// RankPageSize is the number of entries requested per ranking page.
	RankPageSize = 25
)
