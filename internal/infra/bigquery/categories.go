package bigquery

// CategoryRow is one flattened child category of a category tree response.
type CategoryRow struct {
	CID        string `bigquery:"cid"`        // STRING, may arrive as a JSON number
	PID        string `bigquery:"pid"`        // STRING, may arrive as a JSON number
	Name       string `bigquery:"name"`       // STRING
	ParentPath string `bigquery:"parentPath"` // STRING
	Level      int64  `bigquery:"level"`      // INTEGER
}
