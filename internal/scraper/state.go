package scraper

// State is a step of the page processing pipeline.
type State int

const (
	Received State = iota
	StatusChecked
	RejectedStatus
	BodyChecked
	RejectedEmpty
	MetaChecked
	RejectedNoIndex
	ContentScored
	RejectedBounds
	LinksHarvested
	StatsPersisted
	Done
)

var stateNames = map[State]string{
	Received:        "RECEIVED",
	StatusChecked:   "STATUS_CHECKED",
	RejectedStatus:  "REJECTED_STATUS",
	BodyChecked:     "BODY_CHECKED",
	RejectedEmpty:   "REJECTED_EMPTY",
	MetaChecked:     "META_CHECKED",
	RejectedNoIndex: "REJECTED_NOINDEX",
	ContentScored:   "CONTENT_SCORED",
	RejectedBounds:  "REJECTED_BOUNDS",
	LinksHarvested:  "LINKS_HARVESTED",
	StatsPersisted:  "STATS_PERSISTED",
	Done:            "DONE",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Rejected reports whether s is a terminal rejection.
func (s State) Rejected() bool {
	switch s {
	case RejectedStatus, RejectedEmpty, RejectedNoIndex, RejectedBounds:
		return true
	}
	return false
}
