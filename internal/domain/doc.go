package domain

// GameResult is one player's line for a single game, as entered by the host.
type GameResult struct {
	PlayerID string `json:"player_id"`
	Damage   int    `json:"damage"`
	Kills    int    `json:"kills"`
}

// Damage-band predicates for per-game counters. The bands are mutually
// exclusive: a 2k game does not also count as a 1k game.
func IsOneKGame(damage int) bool { return damage >= 1000 && damage < 2000 }
func IsTwoKGame(damage int) bool { return damage >= 2000 }

// IsDonut reports a zero-impact game: no kills and no damage. A 400-damage,
// zero-kill game is not a donut.
func IsDonut(damage, kills int) bool { return damage == 0 && kills == 0 }

// MaxPlayers caps the squad size of a session document.
const MaxPlayers = 3

// ApplyGame folds one game's results and squad placement into the doc.
// It is a pure reducer over the host's local state: callers mutate a copy and
// push the whole doc to storage afterwards.
func (d *SessionDoc) ApplyGame(results []GameResult, placement int) {
	d.SessionGames++
	d.TotalPlacement += placement
	d.Placements = append(d.Placements, placement)
	if placement == 1 {
		d.Wins++
	}

	for _, res := range results {
		p := d.player(res.PlayerID)
		if p == nil {
			continue
		}
		p.Games++
		p.Damage += res.Damage
		p.Kills += res.Kills
		if IsOneKGame(res.Damage) {
			p.OneKGames++
		}
		if IsTwoKGame(res.Damage) {
			p.TwoKGames++
		}
		if IsDonut(res.Damage, res.Kills) {
			p.Donuts++
		}
	}
}

// UndoGame reverses a previous ApplyGame with the same inputs. The host keeps
// the per-game log; the doc only stores the folded counters.
func (d *SessionDoc) UndoGame(results []GameResult, placement int) {
	if d.SessionGames == 0 {
		return
	}
	d.SessionGames--
	d.TotalPlacement -= placement
	if n := len(d.Placements); n > 0 {
		d.Placements = d.Placements[:n-1]
	}
	if placement == 1 && d.Wins > 0 {
		d.Wins--
	}

	for _, res := range results {
		p := d.player(res.PlayerID)
		if p == nil {
			continue
		}
		p.Games--
		p.Damage -= res.Damage
		p.Kills -= res.Kills
		if IsOneKGame(res.Damage) {
			p.OneKGames--
		}
		if IsTwoKGame(res.Damage) {
			p.TwoKGames--
		}
		if IsDonut(res.Damage, res.Kills) {
			p.Donuts--
		}
	}
}

// MergeSelfRP copies only the RP counter of the entry owned by userID from the
// incoming doc into d. Everything else keeps its stored value. Returns false
// when no entry is owned by userID.
func (d *SessionDoc) MergeSelfRP(incoming SessionDoc, userID string) bool {
	var src *PlayerEntry
	for i := range incoming.Players {
		if incoming.Players[i].OwnerUserID == userID {
			src = &incoming.Players[i]
			break
		}
	}
	if src == nil {
		return false
	}
	for i := range d.Players {
		if d.Players[i].OwnerUserID == userID {
			d.Players[i].RP = src.RP
			return true
		}
	}
	return false
}

func (d *SessionDoc) player(id string) *PlayerEntry {
	for i := range d.Players {
		if d.Players[i].ID == id {
			return &d.Players[i]
		}
	}
	return nil
}
