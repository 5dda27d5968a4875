package domain

import (
	"time"
)

// PlayerEntry is one squad member inside a session document. Counters are the
// cumulative totals for the session, maintained by the host's add/undo flow.
type PlayerEntry struct {
	ID          string `json:"id"`
	OwnerUserID string `json:"ownerUserId,omitempty"`
	Name        string `json:"name"`
	Games       int    `json:"games"`
	Damage      int    `json:"damage"`
	Kills       int    `json:"kills"`
	OneKGames   int    `json:"oneKGames"`
	TwoKGames   int    `json:"twoKGames"`
	Donuts      int    `json:"donuts"`
	RP          int    `json:"rp"`
}

// SessionDoc is the mutable session state the host owns. It is persisted as a
// single JSON blob and overwritten whole on every save (last write wins).
type SessionDoc struct {
	Players        []PlayerEntry `json:"players"`
	SessionGames   int           `json:"sessionGames"`
	Wins           int           `json:"wins"`
	TotalPlacement int           `json:"totalPlacement"`
	Placements     []int         `json:"placements"`
}

type Session struct {
	ID           string
	SeasonNumber int
	HostUserID   string
	WriteKey     string
	SessionCode  string
	Doc          SessionDoc
	EndedAt      *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Season struct {
	ID           string
	SeasonNumber int
	HostUserID   string
	IsActive     bool
	CreatedAt    time.Time
}

// RPEntry is one row of the live, append-only ranked-points ledger. Same-day
// repeats stay separate rows; merging happens only in the snapshot ledger.
type RPEntry struct {
	ID        string
	SeasonID  string
	UserID    string
	EntryDate string // calendar date, YYYY-MM-DD
	DeltaRP   int
	CreatedAt time.Time
}

// Snapshot is one row of the season snapshot ledger, written only when a host
// posts a session. Same-day posts for the same user accumulate into one row.
type Snapshot struct {
	ID              string
	SeasonID        string
	UserID          string
	PostDate        string // YYYY-MM-DD
	DeltaRP         int
	PostedAt        time.Time
	PostedBy        string
	PostedSessionID string
}

// SessionPost is the immutable audit record of a host's post-to-Discord, with
// the per-user deltas stored alongside as SessionPostDelta rows.
type SessionPost struct {
	ID        string
	SessionID string
	SeasonID  string
	PostedBy  string
	PostDate  string
	CreatedAt time.Time
}

type SessionPostDelta struct {
	PostID  string
	UserID  string
	DeltaRP int
}

type Profile struct {
	ID          string
	Username    string
	DisplayName string
}

// PlayerStatResult reports the outcome of one player's stat write when a
// session ends. The end flow is best-effort per player, not a transaction.
type PlayerStatResult struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}
