package tournament

// RealTournament is a real-world competition a fantasy tournament can follow.
type RealTournament struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Sport string `json:"sport"`
}

var realTournaments = []RealTournament{
	{ID: "ipl-2024", Name: "Indian Premier League 2024", Type: "T20", Sport: "cricket"},
	{ID: "world-cup-2024", Name: "ICC T20 World Cup 2024", Type: "T20", Sport: "cricket"},
	{ID: "the-hundred-2024", Name: "The Hundred 2024", Type: "The Hundred", Sport: "cricket"},
	{ID: "cpl-2024", Name: "Caribbean Premier League 2024", Type: "T20", Sport: "cricket"},
	{ID: "bbl-2024", Name: "Big Bash League 2024", Type: "T20", Sport: "cricket"},
	{ID: "psl-2024", Name: "Pakistan Super League 2024", Type: "T20", Sport: "cricket"},
	{ID: "eng-vs-ind-2024", Name: "England vs India Test Series 2024", Type: "Test", Sport: "cricket"},
	{ID: "aus-vs-sa-2024", Name: "Australia vs South Africa ODI Series 2024", Type: "ODI", Sport: "cricket"},
}

// RealTournaments lists the competitions offered when creating a tournament.
func RealTournaments() []RealTournament {
	return append([]RealTournament(nil), realTournaments...)
}
