package repositories

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	tables := []struct {
		name  string
		lines []string
		run   func([]string) ([]string, error)
	}{
		{"people", []string{"1,Ada,Lovelace,ada@example.com,555-0100", "7,Alan,Turing,,"}, roundTrip(decodePerson, encodePerson)},
		{"prizes", []string{"1,1,Champion,0,50", "2,2,Runner Up,12.5,0", "3,3,Third,0,0.1"}, roundTrip(decodePrize, encodePrize)},
		{"teams", []string{"1,Falcons,1", "2,Owls,1|2|3", "3,Empty,"}, roundTrip(decodeTeam, encodeTeam)},
		{"entries", []string{"1,1,0,", "2,,0,1", "3,4,-2.25,2", "4,2,1e-7,"}, roundTrip(decodeEntry, encodeEntry)},
		{"matchups", []string{"1,1,1,1", "2,2|3,,1", "3,4|5,2,2"}, roundTrip(decodeMatchup, encodeMatchup)},
		{"tournaments", []string{"1,Spring Cup,10,1|2|3,1|2,1|2^3", "2,Bare,0,1|2,,4^5"}, roundTrip(decodeTournament, encodeTournament)},
	}
	for _, tc := range tables {
		t.Run(tc.name, func(t *testing.T) {
			out, err := tc.run(tc.lines)
			require.NoError(t, err)
			if tc.name == "entries" {
				// 1e-7 is written in plain decimal form.
				assert.Equal(t, "4,2,0.0000001,", out[3])
				out[3] = tc.lines[3]
			}
			assert.Equal(t, tc.lines, out)
		})
	}
}

func roundTrip[T any](decode func(int, string) (T, error), encode func(T) string) func([]string) ([]string, error) {
	return func(lines []string) ([]string, error) {
		recs, err := decodeLines(lines, decode)
		if err != nil {
			return nil, err
		}
		return encodeLines(recs, encode), nil
	}
}

func TestDecodeLinesSkipsBlankLines(t *testing.T) {
	people, err := decodeLines([]string{"1,Ada,Lovelace,,", "", "2,Alan,Turing,,", ""}, decodePerson)
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, 2, people[1].ID)
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name   string
		decode func(string) error
		line   string
		field  string
	}{
		{"field count", decodeWith(decodePerson), "1,Ada,Lovelace", "record"},
		{"non-numeric id", decodeWith(decodePerson), "x,Ada,Lovelace,,", "id"},
		{"zero id", decodeWith(decodeTeam), "0,Falcons,1", "id"},
		{"negative member", decodeWith(decodeTeam), "1,Falcons,1|-2", "memberIds"},
		{"bad score", decodeWith(decodeEntry), "1,1,seven,", "score"},
		{"bad percentage", decodeWith(decodePrize), "1,1,Champion,0,half", "percentage"},
		{"no entries", decodeWith(decodeMatchup), "1,,,1", "entryIds"},
		{"three entries", decodeWith(decodeMatchup), "1,1|2|3,,1", "entryIds"},
		{"round zero", decodeWith(decodeMatchup), "1,1|2,,0", "roundNumber"},
		{"empty round group", decodeWith(decodeTournament), "1,Cup,10,1|2,,1^^2", "rounds"},
		{"bad fee", decodeWith(decodeTournament), "1,Cup,ten,1|2,,1", "entryFee"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.decode(tc.line)
			require.ErrorIs(t, err, ErrValidation)
			var valErr *ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, tc.field, valErr.Field)
			assert.Equal(t, 3, valErr.Line)
		})
	}
}

func decodeWith[T any](decode func(int, string) (T, error)) func(string) error {
	return func(line string) error {
		_, err := decodeLines([]string{"", "", line}, decode)
		return err
	}
}

func TestValidationErrorMessage(t *testing.T) {
	_, err := decodeLines([]string{"1,1,seven,"}, decodeEntry)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "matchup_entries line 1: invalid score \"seven\""), err.Error())
	assert.ErrorIs(t, err, strconv.ErrSyntax)
}

func TestCheckText(t *testing.T) {
	assert.NoError(t, checkText(teamsTable, "name", "Falcons | Hawks ^ Owls"))
	assert.ErrorIs(t, checkText(teamsTable, "name", "a,b"), ErrValidation)
	assert.ErrorIs(t, checkText(teamsTable, "name", "a\rb"), ErrValidation)
}
