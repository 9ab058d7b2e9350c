package domain

import "time"

// FillDisplayTimes derives the locale-formatted time and date fields
// from the entry timestamp. Unparseable timestamps leave both empty.
func (w *WorkDocumentation) FillDisplayTimes() {
	ts, err := time.Parse(time.RFC3339, w.Timestamp)
	if err != nil {
		w.Time = ""
		w.Date = ""
		return
	}
	w.Time = ts.Format("15:04:05")
	w.Date = ts.Format("2006-01-02")
}
