package schema

import "fmt"

// Status is the lifecycle state of a marketing activity.
type Status string

const (
	StatusNew        Status = "baru"
	StatusInProgress Status = "dalam_proses"
	StatusWon        Status = "berhasil"
	StatusLost       Status = "gagal"
)

// Statuses returns every valid status.
func Statuses() []Status {
	return []Status{StatusNew, StatusInProgress, StatusWon, StatusLost}
}

// ParseStatus rejects anything outside the closed status set.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid status %q (want baru, dalam_proses, berhasil or gagal)", s)
	}
	return st, nil
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusWon, StatusLost:
		return true
	}
	return false
}

// Label returns the human readable form shown in listings.
func (s Status) Label() string {
	switch s {
	case StatusNew:
		return "Baru"
	case StatusInProgress:
		return "Dalam Proses"
	case StatusWon:
		return "Berhasil"
	case StatusLost:
		return "Gagal"
	}
	return string(s)
}
