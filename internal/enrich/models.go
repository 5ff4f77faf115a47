package enrich

import (
	"strings"
	"time"
)

// RowStatus represents the lifecycle of a single enrichment row.
type RowStatus string

const (
	StatusPending  RowStatus = "pending"
	StatusFetching RowStatus = "fetching"
	StatusPaused   RowStatus = "paused"
	StatusDone     RowStatus = "done"
	StatusSkipped  RowStatus = "skipped"
	StatusError    RowStatus = "error"
)

var allStatuses = []RowStatus{
	StatusPending,
	StatusFetching,
	StatusPaused,
	StatusDone,
	StatusSkipped,
	StatusError,
}

// AllStatuses returns every known row status in lifecycle order.
func AllStatuses() []RowStatus {
	out := make([]RowStatus, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// Unfinished reports whether the status still needs scheduler attention.
func (s RowStatus) Unfinished() bool {
	switch s {
	case StatusPending, StatusFetching, StatusPaused:
		return true
	default:
		return false
	}
}

// Terminal reports whether the row has reached a final status.
func (s RowStatus) Terminal() bool {
	switch s {
	case StatusDone, StatusSkipped, StatusError:
		return true
	default:
		return false
	}
}

// Eligible reports whether the scheduler may claim a row in this status.
func (s RowStatus) Eligible() bool {
	return s == StatusPending || s == StatusPaused
}

// Stage names the pipeline stage a row is in. Rows only ever move
// vendor -> fallback.
type Stage string

const (
	StageVendor   Stage = "vendor"
	StageFallback Stage = "fallback"
)

// Phase is the overall runner phase observed by the UI.
type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseInit   Phase = "init"
	PhaseActive Phase = "active"
	PhasePaused Phase = "paused"
	PhaseDone   Phase = "done"
)

// Attempts counts provider calls per provider class within a session.
type Attempts struct {
	Price    int `json:"price"`
	Playtime int `json:"playtime"`
	Critic   int `json:"critic"`
	Catalog  int `json:"catalog"`
}

// Checks records which pipeline steps a row has already performed so a
// resumed row continues where it stopped.
type Checks struct {
	Price            bool `json:"price,omitempty"`
	LocalPlaytime    bool `json:"localPlaytime,omitempty"`
	CriticIndex      bool `json:"criticIndex,omitempty"`
	RemotePlaytime   bool `json:"remotePlaytime,omitempty"`
	PlaytimeEstimate bool `json:"playtimeEstimate,omitempty"`
	RemoteCritic     bool `json:"remoteCritic,omitempty"`
	CriticEstimate   bool `json:"criticEstimate,omitempty"`
}

// RowInput is the caller-supplied description of one library entry.
type RowInput struct {
	ID         string `json:"id"`
	IdentityID string `json:"identityId"`
	Title      string `json:"title"`
	AppID      *int64 `json:"appid,omitempty"`
	Platform   string `json:"platform,omitempty"`
}

// Row is one enrichment task. While a session is open the runner owns every
// Row exclusively; callers only ever see copies.
type Row struct {
	ID         string `json:"id"`
	IdentityID string `json:"identityId"`
	Title      string `json:"title"`
	AppID      *int64 `json:"appid,omitempty"`
	Platform   string `json:"platform,omitempty"`

	Status RowStatus `json:"status"`
	Stage  Stage     `json:"stage"`

	Price        *float64 `json:"price,omitempty"`
	CurrencyCode string   `json:"currencyCode,omitempty"`
	TTB          *float64 `json:"ttb,omitempty"`
	TTBSource    string   `json:"ttbSource,omitempty"`
	CriticScore  *int     `json:"criticScore,omitempty"`
	CriticSource string   `json:"criticSource,omitempty"`

	Message   string    `json:"message,omitempty"`
	Attempts  Attempts  `json:"attempts"`
	Checked   Checks    `json:"checked"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AppendMessage adds text to the row's semicolon-joined message log.
func (r *Row) AppendMessage(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if r.Message == "" {
		r.Message = text
		return
	}
	r.Message = r.Message + "; " + text
}

// Clone returns a deep copy of the row.
func (r Row) Clone() Row {
	out := r
	if r.AppID != nil {
		v := *r.AppID
		out.AppID = &v
	}
	if r.Price != nil {
		v := *r.Price
		out.Price = &v
	}
	if r.TTB != nil {
		v := *r.TTB
		out.TTB = &v
	}
	if r.CriticScore != nil {
		v := *r.CriticScore
		out.CriticScore = &v
	}
	return out
}

// NeedsFallback reports whether the vendor stage left fields unresolved.
func (r Row) NeedsFallback() bool {
	return r.TTB == nil || r.CriticScore == nil
}

// Summary builds the immutable record appended to a session's recent list.
func (r Row) Summary(finishedAt time.Time) RowSummary {
	c := r.Clone()
	return RowSummary{
		ID:           c.ID,
		Title:        c.Title,
		FinishedAt:   finishedAt,
		Price:        c.Price,
		CurrencyCode: c.CurrencyCode,
		TTB:          c.TTB,
		TTBSource:    c.TTBSource,
		CriticScore:  c.CriticScore,
		CriticSource: c.CriticSource,
	}
}

// RowSummary is a finished row's resolved fields. Never mutated after creation.
type RowSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	FinishedAt   time.Time `json:"finishedAt"`
	Price        *float64  `json:"price,omitempty"`
	CurrencyCode string    `json:"currencyCode,omitempty"`
	TTB          *float64  `json:"ttb,omitempty"`
	TTBSource    string    `json:"ttbSource,omitempty"`
	CriticScore  *int      `json:"criticScore,omitempty"`
	CriticSource string    `json:"criticSource,omitempty"`
}

// Session is the durable unit handed to persistence.
type Session struct {
	SessionID      string       `json:"sessionId"`
	StartedAt      time.Time    `json:"startedAt"`
	LastUpdated    time.Time    `json:"lastUpdated"`
	Paused         bool         `json:"paused"`
	TotalRows      int          `json:"totalRows"`
	CompletedCount int          `json:"completedCount"`
	Region         string       `json:"region,omitempty"`
	Queue          []Row        `json:"queue,omitempty"`
	Recent         []RowSummary `json:"recent,omitempty"`
	Phase          Phase        `json:"phase"`
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	out := s
	if len(s.Queue) > 0 {
		out.Queue = make([]Row, len(s.Queue))
		for i, row := range s.Queue {
			out.Queue[i] = row.Clone()
		}
	}
	if len(s.Recent) > 0 {
		out.Recent = make([]RowSummary, len(s.Recent))
		copy(out.Recent, s.Recent)
	}
	return out
}

// CountStatus returns how many queued rows are in the given status.
func (s Session) CountStatus(status RowStatus) int {
	n := 0
	for _, row := range s.Queue {
		if row.Status == status {
			n++
		}
	}
	return n
}

// Unfinished reports whether any row still needs processing.
func (s Session) Unfinished() bool {
	for _, row := range s.Queue {
		if row.Status.Unfinished() {
			return true
		}
	}
	return false
}

// Snapshot is an immutable point-in-time view pushed to observers.
type Snapshot struct {
	Seq            uint64       `json:"seq"`
	SessionID      string       `json:"sessionId,omitempty"`
	StartedAt      *time.Time   `json:"startedAt,omitempty"`
	LastUpdated    *time.Time   `json:"lastUpdated,omitempty"`
	Paused         bool         `json:"paused"`
	TotalRows      int          `json:"totalRows"`
	CompletedCount int          `json:"completedCount"`
	Region         string       `json:"region,omitempty"`
	Queue          []Row        `json:"queue"`
	Recent         []RowSummary `json:"recent"`
	ActiveRowIDs   []string     `json:"activeRowIds"`
	Phase          Phase        `json:"phase"`
	Finished       bool         `json:"finished"`
	Message        string       `json:"message,omitempty"`
	Capable        bool         `json:"capable"`
}

// Counts tallies rows per status.
func (s Snapshot) Counts() map[RowStatus]int {
	counts := make(map[RowStatus]int, len(allStatuses))
	for _, row := range s.Queue {
		counts[row.Status]++
	}
	return counts
}

// Row returns the queued row with the given id.
func (s Snapshot) Row(id string) (Row, bool) {
	for _, row := range s.Queue {
		if row.ID == id {
			return row, true
		}
	}
	return Row{}, false
}
