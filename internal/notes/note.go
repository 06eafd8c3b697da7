package notes

// timestampFormat is the human-readable note timestamp, e.g.
// "September 01, 2026 | 07:45 PM".
const timestampFormat = "January 02, 2006 | 03:04 PM"

// Note is stored as JSON inside the user's ordered note list. Body holds the
// raw Markdown source; rendering happens at read time.
type Note struct {
	Date string `json:"date"`
	Body string `json:"body"`
}
