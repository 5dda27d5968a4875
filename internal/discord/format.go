package discord

import (
	"fmt"
	"strings"

	"apex-tracker/internal/domain"
)

// FormatSessionSummary renders the session's aggregate stats as Discord
// markdown. The layout is load-bearing: consuming channels parse the bold
// headers and per-player lines, so keep it stable.
func FormatSessionSummary(seasonNumber int, doc domain.SessionDoc) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**Season %d Session Results**\n", seasonNumber)
	fmt.Fprintf(&b, "**Games: %d | Wins: %d | Total Placement: %d**\n",
		doc.SessionGames, doc.Wins, doc.TotalPlacement)

	squadRP := 0
	for _, p := range doc.Players {
		fmt.Fprintf(&b, "%s: %d dmg, %d kills, %dx 1k, %dx 2k, %d donuts, %s RP\n",
			p.Name, p.Damage, p.Kills, p.OneKGames, p.TwoKGames, p.Donuts, signedRP(p.RP))
		squadRP += p.RP
	}

	fmt.Fprintf(&b, "**Squad RP: %s**", signedRP(squadRP))
	return b.String()
}

// signedRP prints positive deltas with an explicit leading plus; zero and
// negative values print as-is.
func signedRP(rp int) string {
	if rp > 0 {
		return fmt.Sprintf("+%d", rp)
	}
	return fmt.Sprintf("%d", rp)
}
