package repositories

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Dosada05/tournament-tracker/models"
)

const (
	fieldSep = ","
	listSep  = "|"
	groupSep = "^"
)

type table struct {
	name   string
	file   string
	fields int
}

var (
	peopleTable      = table{name: "people", file: "people.csv", fields: 5}
	prizesTable      = table{name: "prizes", file: "prizes.csv", fields: 5}
	teamsTable       = table{name: "teams", file: "teams.csv", fields: 3}
	entriesTable     = table{name: "matchup_entries", file: "matchup_entries.csv", fields: 4}
	matchupsTable    = table{name: "matchups", file: "matchups.csv", fields: 4}
	tournamentsTable = table{name: "tournaments", file: "tournaments.csv", fields: 6}
)

// Records mirror one line of a table. References are plain IDs; 0 marks an
// absent optional reference.

type teamRecord struct {
	ID        int
	Name      string
	MemberIDs []int
}

type entryRecord struct {
	ID       int
	TeamID   int
	Score    float64
	ParentID int
}

type matchupRecord struct {
	ID       int
	EntryIDs []int
	WinnerID int
	Round    int
}

type tournamentRecord struct {
	ID       int
	Name     string
	EntryFee float64
	TeamIDs  []int
	PrizeIDs []int
	Rounds   [][]int
}

// lineDecoder parses one line of a table into a record.
type lineDecoder struct {
	tbl  table
	line int
	cols []string
	err  error
}

func newLineDecoder(tbl table, lineNo int, text string) *lineDecoder {
	d := &lineDecoder{tbl: tbl, line: lineNo}
	d.cols = strings.Split(text, fieldSep)
	if len(d.cols) != tbl.fields {
		d.err = &ValidationError{
			Table: tbl.name, Line: lineNo, Field: "record", Value: text,
			Err: errFieldCount(tbl.fields, len(d.cols)),
		}
	}
	return d
}

func (d *lineDecoder) fail(field, value string, err error) {
	if d.err == nil {
		d.err = &ValidationError{Table: d.tbl.name, Line: d.line, Field: field, Value: value, Err: err}
	}
}

func (d *lineDecoder) text(i int) string {
	if d.err != nil {
		return ""
	}
	return d.cols[i]
}

func (d *lineDecoder) id(i int, field string) int {
	if d.err != nil {
		return 0
	}
	return d.parseID(field, d.cols[i])
}

func (d *lineDecoder) optionalID(i int, field string) int {
	if d.err != nil || d.cols[i] == "" {
		return 0
	}
	return d.parseID(field, d.cols[i])
}

func (d *lineDecoder) parseID(field, s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		d.fail(field, s, err)
		return 0
	}
	if n <= 0 {
		d.fail(field, s, errNonPositiveID)
		return 0
	}
	return n
}

func (d *lineDecoder) integer(i int, field string) int {
	if d.err != nil {
		return 0
	}
	n, err := strconv.Atoi(d.cols[i])
	if err != nil {
		d.fail(field, d.cols[i], err)
	}
	return n
}

func (d *lineDecoder) number(i int, field string) float64 {
	if d.err != nil {
		return 0
	}
	f, err := strconv.ParseFloat(d.cols[i], 64)
	if err != nil {
		d.fail(field, d.cols[i], err)
	}
	return f
}

func (d *lineDecoder) idList(i int, field string) []int {
	if d.err != nil || d.cols[i] == "" {
		return nil
	}
	return d.splitIDs(field, d.cols[i])
}

func (d *lineDecoder) splitIDs(field, s string) []int {
	parts := strings.Split(s, listSep)
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		ids = append(ids, d.parseID(field, p))
	}
	return ids
}

func (d *lineDecoder) groups(i int, field string) [][]int {
	if d.err != nil || d.cols[i] == "" {
		return nil
	}
	var out [][]int
	for _, g := range strings.Split(d.cols[i], groupSep) {
		if g == "" {
			d.fail(field, d.cols[i], errEmptyGroup)
			return nil
		}
		out = append(out, d.splitIDs(field, g))
	}
	return out
}

func decodePerson(lineNo int, text string) (*models.Person, error) {
	d := newLineDecoder(peopleTable, lineNo, text)
	p := &models.Person{
		ID:        d.id(0, "id"),
		FirstName: d.text(1),
		LastName:  d.text(2),
		Email:     d.text(3),
		Phone:     d.text(4),
	}
	return p, d.err
}

func encodePerson(p *models.Person) string {
	return joinFields(strconv.Itoa(p.ID), p.FirstName, p.LastName, p.Email, p.Phone)
}

func decodePrize(lineNo int, text string) (*models.Prize, error) {
	d := newLineDecoder(prizesTable, lineNo, text)
	p := &models.Prize{
		ID:          d.id(0, "id"),
		PlaceNumber: d.integer(1, "placeNumber"),
		PlaceName:   d.text(2),
		FixedAmount: d.number(3, "fixedAmount"),
		Percentage:  d.number(4, "percentage"),
	}
	return p, d.err
}

func encodePrize(p *models.Prize) string {
	return joinFields(strconv.Itoa(p.ID), strconv.Itoa(p.PlaceNumber), p.PlaceName,
		formatNumber(p.FixedAmount), formatNumber(p.Percentage))
}

func decodeTeam(lineNo int, text string) (teamRecord, error) {
	d := newLineDecoder(teamsTable, lineNo, text)
	r := teamRecord{
		ID:        d.id(0, "id"),
		Name:      d.text(1),
		MemberIDs: d.idList(2, "memberIds"),
	}
	return r, d.err
}

func encodeTeam(r teamRecord) string {
	return joinFields(strconv.Itoa(r.ID), r.Name, joinIDs(r.MemberIDs))
}

func decodeEntry(lineNo int, text string) (entryRecord, error) {
	d := newLineDecoder(entriesTable, lineNo, text)
	r := entryRecord{
		ID:       d.id(0, "id"),
		TeamID:   d.optionalID(1, "teamId"),
		Score:    d.number(2, "score"),
		ParentID: d.optionalID(3, "parentMatchupId"),
	}
	return r, d.err
}

func encodeEntry(r entryRecord) string {
	return joinFields(strconv.Itoa(r.ID), optionalID(r.TeamID), formatNumber(r.Score), optionalID(r.ParentID))
}

func decodeMatchup(lineNo int, text string) (matchupRecord, error) {
	d := newLineDecoder(matchupsTable, lineNo, text)
	r := matchupRecord{
		ID:       d.id(0, "id"),
		EntryIDs: d.idList(1, "entryIds"),
		WinnerID: d.optionalID(2, "winnerTeamId"),
		Round:    d.integer(3, "roundNumber"),
	}
	if d.err == nil && (len(r.EntryIDs) < 1 || len(r.EntryIDs) > 2) {
		d.fail("entryIds", d.cols[1], errEntryCount(len(r.EntryIDs)))
	}
	if d.err == nil && r.Round < 1 {
		d.fail("roundNumber", d.cols[3], errNonPositiveRound)
	}
	return r, d.err
}

func encodeMatchup(r matchupRecord) string {
	return joinFields(strconv.Itoa(r.ID), joinIDs(r.EntryIDs), optionalID(r.WinnerID), strconv.Itoa(r.Round))
}

func decodeTournament(lineNo int, text string) (tournamentRecord, error) {
	d := newLineDecoder(tournamentsTable, lineNo, text)
	r := tournamentRecord{
		ID:       d.id(0, "id"),
		Name:     d.text(1),
		EntryFee: d.number(2, "entryFee"),
		TeamIDs:  d.idList(3, "teamIds"),
		PrizeIDs: d.idList(4, "prizeIds"),
		Rounds:   d.groups(5, "rounds"),
	}
	return r, d.err
}

func encodeTournament(r tournamentRecord) string {
	rounds := make([]string, 0, len(r.Rounds))
	for _, ids := range r.Rounds {
		rounds = append(rounds, joinIDs(ids))
	}
	return joinFields(strconv.Itoa(r.ID), r.Name, formatNumber(r.EntryFee),
		joinIDs(r.TeamIDs), joinIDs(r.PrizeIDs), strings.Join(rounds, groupSep))
}

// decodeLines decodes every non-blank line of a table. The first failure
// aborts the whole table.
func decodeLines[T any](lines []string, decode func(int, string) (T, error)) ([]T, error) {
	out := make([]T, 0, len(lines))
	for i, line := range lines {
		if line == "" {
			continue
		}
		rec, err := decode(i+1, line)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func encodeLines[T any](recs []T, encode func(T) string) []string {
	lines := make([]string, 0, len(recs))
	for _, r := range recs {
		lines = append(lines, encode(r))
	}
	return lines
}

// checkText rejects values that would break the line or field structure.
func checkText(tbl table, field, value string) error {
	if strings.ContainsAny(value, fieldSep+"\r\n") {
		return &ValidationError{Table: tbl.name, Field: field, Value: value, Err: errReservedChar}
	}
	return nil
}

func joinFields(fields ...string) string {
	return strings.Join(fields, fieldSep)
}

func joinIDs(ids []int) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.Itoa(id))
	}
	return strings.Join(parts, listSep)
}

func optionalID(id int) string {
	if id == 0 {
		return ""
	}
	return strconv.Itoa(id)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

var (
	errNonPositiveID    = errors.New("id must be a positive integer")
	errNonPositiveRound = errors.New("round number must be positive")
	errEmptyGroup       = errors.New("empty round group")
	errReservedChar     = errors.New("contains a reserved separator or line break")
)

func errFieldCount(want, got int) error {
	return fmt.Errorf("expected %d fields, got %d", want, got)
}

func errRoundMismatch(stored, group int) error {
	return fmt.Errorf("matchup has round number %d but is listed in round %d", stored, group)
}

func errEntryCount(got int) error {
	return fmt.Errorf("matchup must have 1 or 2 entries, got %d", got)
}
